package main

import (
	"fmt"
	"os"
	"strings"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return uiModeAuto, nil
	case "on":
		return uiModeOn, nil
	case "off":
		return uiModeOff, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// shouldUseTUI decides whether the progress view runs. Quiet runs never
// show it; auto mode requires a terminal and more than one file.
func shouldUseTUI(mode uiMode, quiet bool, files int) bool {
	switch {
	case quiet || mode == uiModeOff:
		return false
	case mode == uiModeOn:
		return true
	default:
		return files > 1 && isTerminal(os.Stdout)
	}
}
