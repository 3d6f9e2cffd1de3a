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

const modulePath = "github.com/Emupedia/emupedia-game-agar.io-sub000"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// layerRule forbids packages under From from importing anything under the
// listed prefixes.
type layerRule struct {
	From      string
	Forbidden []string
}

var rules = []layerRule{
	{From: "internal/spatial", Forbidden: []string{"internal/"}},
	{From: "internal/entity", Forbidden: []string{"internal/world", "internal/sim", "internal/net", "internal/game", "internal/admin"}},
	{From: "internal/world", Forbidden: []string{"internal/sim", "internal/net", "internal/game", "internal/admin", "internal/app"}},
	{From: "internal/net/proto", Forbidden: []string{"internal/"}},
	{From: "internal/sim", Forbidden: []string{"internal/world", "internal/net", "internal/game"}},
	{From: "internal/admin", Forbidden: []string{"internal/game", "internal/net", "internal/app"}},
	{From: "internal/game", Forbidden: []string{"internal/net/ws", "internal/app", "internal/config"}},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	decoder := json.NewDecoder(bytes.NewReader(output))

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
			os.Exit(1)
		}
		violations = append(violations, check(pkg)...)
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

func check(pkg packageInfo) []string {
	rel, ok := relative(pkg.ImportPath)
	if !ok {
		return nil
	}
	var out []string
	for _, rule := range rules {
		if !within(rel, rule.From) {
			continue
		}
		for _, imp := range pkg.Imports {
			target, ok := relative(imp)
			if !ok || within(target, rule.From) {
				continue
			}
			for _, forbidden := range rule.Forbidden {
				if strings.HasPrefix(target, forbidden) {
					out = append(out, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
					break
				}
			}
		}
	}
	return out
}

func relative(importPath string) (string, bool) {
	rest, ok := strings.CutPrefix(importPath, modulePath+"/")
	return rest, ok
}

func within(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
