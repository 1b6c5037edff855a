package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/715d/reduxmapper/pkg/reduxmapper"
)

var (
	headlineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	tipsStyle     = lipgloss.NewStyle().Bold(true)
	tipStyle      = lipgloss.NewStyle().PaddingLeft(2)
)

// printError writes err to w. Coded errors get a headline and numbered troubleshooting tips.
func printError(w io.Writer, err error) {
	var mErr *reduxmapper.Error
	if !errors.As(err, &mErr) {
		fmt.Fprintln(w, headlineStyle.Render("*** ERROR: "+err.Error()+" ***"))
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headlineStyle.Render("*** ERROR: "+mErr.Error()+" ***"))
	tips := mErr.AllTips()
	if len(tips) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, tipsStyle.Render("Troubleshooting tips:"))
	for i, tip := range tips {
		fmt.Fprintln(w, tipStyle.Render(fmt.Sprintf("%d. %s", i+1, tip)))
	}
}
