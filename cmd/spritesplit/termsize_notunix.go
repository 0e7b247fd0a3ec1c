//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)

package main

import (
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

type termSize struct {
	WSRow, WSCol       uint
	WSXPixel, WSYPixel uint
}

func getTermSize() (termSize, error) {
	w, h, err := terminal.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return termSize{}, err
	}
	return termSize{WSRow: uint(h), WSCol: uint(w)}, nil
}
