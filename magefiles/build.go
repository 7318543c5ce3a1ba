//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaders = []string{
	"triangle.vert",
	"triangle.frag",
	"gltfloading.vert",
	"gltfloading.frag",
}

// Compiles the GLSL sources in shaders/ into assets/shaders/*.spv with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and then builds the binary.
func (Build) All() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkexamples", "."), withStream())
	return err
}

func buildShaders() error {
	out := filepath.Join("assets", "shaders")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	for _, s := range shaders {
		dst := filepath.Join(out, s+".spv")
		if _, err := executeCmd("glslc", withArgs(filepath.Join("shaders", s), "-o", dst), withStream()); err != nil {
			return err
		}
	}
	return nil
}
