// Command depscheck fails when the navigation core imports the service or
// transport layers.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// layerRule forbids packages matching Packages from importing any prefix in
// Forbidden.
type layerRule struct {
	Packages  string
	Forbidden []string
}

var rules = []layerRule{
	{
		Packages: "./internal/nav/...",
		Forbidden: []string{
			"roomnav/internal/route",
			"roomnav/internal/net",
			"roomnav/internal/app",
			"roomnav/internal/mapdef",
			"github.com/gorilla/websocket",
			"net/http",
		},
	},
	{
		Packages: "./internal/mapgen/...",
		Forbidden: []string{
			"roomnav/internal/route",
			"roomnav/internal/net",
			"roomnav/internal/app",
		},
	},
}

func main() {
	var violations []string
	for _, rule := range rules {
		pkgs, err := listPackages(rule.Packages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "depscheck: %v\n", err)
			os.Exit(1)
		}
		violations = append(violations, findViolations(pkgs, rule.Forbidden)...)
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func listPackages(pattern string) ([]packageInfo, error) {
	cmd := exec.Command("go", "list", "-json", pattern)
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Stderr.Write(exitErr.Stderr)
		}
		return nil, fmt.Errorf("failed to list packages %s: %w", pattern, err)
	}
	return decodePackages(bytes.NewReader(output))
}

// decodePackages reads the concatenated JSON objects go list -json prints.
func decodePackages(r io.Reader) ([]packageInfo, error) {
	decoder := json.NewDecoder(r)
	var pkgs []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return pkgs, nil
			}
			return nil, fmt.Errorf("failed to decode package info: %w", err)
		}
		pkgs = append(pkgs, pkg)
	}
}

func findViolations(pkgs []packageInfo, forbidden []string) []string {
	var violations []string
	for _, pkg := range pkgs {
		for _, imp := range pkg.Imports {
			for _, prefix := range forbidden {
				if imp == prefix || strings.HasPrefix(imp, prefix+"/") {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
	return violations
}
