//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the given example with config.toml.
func (Run) Example(name string) error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Printf("Run example %s...\n", name)
	if _, err := executeCmd("go", withArgs("run", ".", "config.toml", name), withStream()); err != nil {
		return err
	}
	return nil
}
