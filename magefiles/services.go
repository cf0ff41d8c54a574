//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
)

// Grobid starts a local GROBID container for document extraction.
func Grobid() error {
	return dockerRun("gaply-grobid", "lfoppiano/grobid:0.8.0", "8070:8070")
}

// Qdrant starts a local Qdrant container for the vector index.
func Qdrant() error {
	return dockerRun("gaply-qdrant", "qdrant/qdrant:v1.12.4", "6333:6333")
}

// Test runs the full test suite.
func Test() error {
	cmd := exec.Command("go", "test", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func dockerRun(name, image, port string) error {
	cmd := exec.Command("docker", "run", "--rm", "-d",
		"--name", name, "-p", port, image)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}
	fmt.Printf("%s running on %s\n", name, port)
	return nil
}
