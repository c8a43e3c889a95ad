package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs an ASCII art banner for Promptloom.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Amber-to-rose gradient
	s1 := termenv.String("                               _   _                       ").Foreground(p.Color("#fbbf24"))
	s2 := termenv.String("  _ __  _ __ ___  _ __ ___  _ __ | |_| | ___   ___  _ __ ___  ").Foreground(p.Color("#f59e0b"))
	s3 := termenv.String(" | '_ \\| '__/ _ \\| '_ ` _ \\| '_ \\| __| |/ _ \\ / _ \\| '_ ` _ \\ ").Foreground(p.Color("#f97316"))
	s4 := termenv.String(" | |_) | | | (_) | | | | | | |_) | |_| | (_) | (_) | | | | | |").Foreground(p.Color("#fb7185"))
	s5 := termenv.String(" | .__/|_|  \\___/|_| |_| |_| .__/ \\__|_|\\___/ \\___/|_| |_| |_|").Foreground(p.Color("#f43f5e"))
	s6 := termenv.String(" |_|                       |_|                                ").Foreground(p.Color("#e11d48"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(s6)
	fmt.Println()
}
