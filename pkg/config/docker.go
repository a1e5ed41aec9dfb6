package config

import (
	"os"
	"sync"
)

var (
	containerOnce   sync.Once
	containerResult bool
)

// inContainer reports whether the process runs inside a Docker container
// (/.dockerenv exists). The result is cached after the first call.
func inContainer() bool {
	containerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		containerResult = err == nil
	})
	return containerResult
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// applyContainerDefaults adjusts loopback addresses when running in a container.
// The listener moves to all interfaces so published ports reach it, and a
// loopback database host points at the Docker host instead.
func (c *Config) applyContainerDefaults(containerized bool) {
	if !containerized {
		return
	}
	if isLoopback(c.BindAddr) {
		c.BindAddr = "0.0.0.0"
	}
	if isLoopback(c.Database.Host) {
		c.Database.Host = "host.docker.internal"
	}
}
