//go:build windows

package main

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

var (
	modKernel32          = windows.NewLazySystemDLL("kernel32.dll")
	modUser32            = windows.NewLazySystemDLL("user32.dll")
	procGetConsoleWindow = modKernel32.NewProc("GetConsoleWindow")
	procShowWindow       = modUser32.NewProc("ShowWindow")
)

const (
	swHide        = 0
	envBackground = "PROCMON_BACKGROUND"
)

// hideConsoleWindow hides the current process console window if present.
func hideConsoleWindow() {
	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd == 0 {
		return
	}
	procShowWindow.Call(hwnd, uintptr(swHide))
}

// spawnDetachedIfNeeded starts a detached copy of the current process and returns true
// if the parent should exit immediately, giving the console back while the tray runs.
// It only spawns from a console window and when PROCMON_BACKGROUND is not already set.
func spawnDetachedIfNeeded(trayEnabled bool) bool {
	if !trayEnabled {
		return false
	}
	if os.Getenv(envBackground) == "1" {
		return false
	}
	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd == 0 {
		return false
	}
	exe, err := os.Executable()
	if err != nil || exe == "" {
		return false
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), envBackground+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP,
	}
	return cmd.Start() == nil
}
