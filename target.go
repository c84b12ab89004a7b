package main

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch is a CPU architecture, using GCC names
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86_64
	ArchARM64
	ArchRiscv64
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchARM64:
		return "aarch64"
	case ArchRiscv64:
		return "riscv64"
	}
	return "unknown"
}

// ParseArch accepts both GCC and Go architecture names
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(s) {
	case "x86_64", "amd64", "x86-64":
		return ArchX86_64, nil
	case "aarch64", "arm64":
		return ArchARM64, nil
	case "riscv64":
		return ArchRiscv64, nil
	}
	return ArchUnknown, fmt.Errorf("unsupported architecture %q", s)
}

type OS int

const (
	OSUnknown OS = iota
	OSLinux
	OSDarwin
	OSFreeBSD
	OSWindows
)

func (o OS) String() string {
	switch o {
	case OSLinux:
		return "linux"
	case OSDarwin:
		return "darwin"
	case OSFreeBSD:
		return "freebsd"
	case OSWindows:
		return "windows"
	}
	return "unknown"
}

func ParseOS(s string) (OS, error) {
	switch strings.ToLower(s) {
	case "linux":
		return OSLinux, nil
	case "darwin", "macos":
		return OSDarwin, nil
	case "freebsd":
		return OSFreeBSD, nil
	case "windows":
		return OSWindows, nil
	}
	return OSUnknown, fmt.Errorf("unsupported operating system %q", s)
}

// Platform is a compilation target (architecture + OS)
type Platform struct {
	Arch Arch
	OS   OS
}

// HostPlatform returns the platform calcc itself runs on
func HostPlatform() Platform {
	var p Platform
	switch runtime.GOARCH {
	case "amd64":
		p.Arch = ArchX86_64
	case "arm64":
		p.Arch = ArchARM64
	case "riscv64":
		p.Arch = ArchRiscv64
	}
	switch runtime.GOOS {
	case "linux":
		p.OS = OSLinux
	case "darwin":
		p.OS = OSDarwin
	case "freebsd":
		p.OS = OSFreeBSD
	case "windows":
		p.OS = OSWindows
	}
	return p
}

// ParsePlatform parses "arch-os", like "x86_64-linux" or "arm64-darwin".
// An empty string or "host" means the host platform.
func ParsePlatform(s string) (Platform, error) {
	if s == "" || s == "host" {
		return HostPlatform(), nil
	}
	archStr, osStr, ok := strings.Cut(s, "-")
	if !ok {
		return Platform{}, fmt.Errorf("target %q is not of the form arch-os", s)
	}
	arch, err := ParseArch(archStr)
	if err != nil {
		return Platform{}, err
	}
	os, err := ParseOS(osStr)
	if err != nil {
		return Platform{}, err
	}
	return Platform{Arch: arch, OS: os}, nil
}

// String returns the full target string like "x86_64-linux"
func (p Platform) String() string {
	return p.Arch.String() + "-" + p.OS.String()
}

// Triple returns the LLVM target triple
func (p Platform) Triple() string {
	arch := p.Arch.String()
	switch p.OS {
	case OSDarwin:
		if p.Arch == ArchARM64 {
			arch = "arm64"
		}
		return arch + "-apple-darwin"
	case OSWindows:
		return arch + "-pc-windows-msvc"
	case OSFreeBSD:
		return arch + "-unknown-freebsd"
	}
	return arch + "-unknown-linux-gnu"
}

func (p Platform) IsHost() bool {
	return p == HostPlatform()
}

func (p Platform) IsELF() bool {
	return p.OS == OSLinux || p.OS == OSFreeBSD
}

// ExeSuffix is appended to executable names on this platform
func (p Platform) ExeSuffix() string {
	if p.OS == OSWindows {
		return ".exe"
	}
	return ""
}

// ELFMachine returns the e_machine value for the architecture
func (p Platform) ELFMachine() uint16 {
	switch p.Arch {
	case ArchX86_64:
		return 0x3e
	case ArchARM64:
		return 0xB7
	case ArchRiscv64:
		return 0xF3
	}
	return 0
}
