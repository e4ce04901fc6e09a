package cli

import (
	"fmt"
	"strings"

	"github.com/buger/goterm"
	"github.com/fatih/color"
)

var (
	// Colors.
	userColor   = color.New(color.Bold)
	aiColor     = color.New(color.FgCyan)
	formatColor = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed)

	width = goterm.Width()
)

// Separator printed to cli.
func Separator() {
	separator := strings.Repeat("-", width)
	formatColor.Println(separator)
}

// Title printed to cli.
func Title(text string, args ...any) {
	title := "      " + fmt.Sprintf(text, args...) + "      "
	leftWidth := max((width-len(title))/2, 0)
	separator1 := strings.Repeat("-", leftWidth)
	separator2 := strings.Repeat("-", max(width-len(title)-len(separator1), 0))
	formatColor.Printf("%s%s%s\n", separator1, title, separator2)
}

// UserInput printed to cli.
func UserInput(text string, args ...any) {
	userColor.Printf("-> %s", fmt.Sprintf(text, args...))
}

// AIOutput printed to cli.
func AIOutput(text string, args ...any) {
	aiColor.Printf(text, args...)
}

// Error printed to cli.
func Error(text string, args ...any) {
	errorColor.Printf(text+"\n", args...)
}
