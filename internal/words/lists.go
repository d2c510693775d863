// internal/words/lists.go
package words

import (
	_ "embed"
)

//go:embed data/base.txt
var baseTxt string

//go:embed data/duet.txt
var duetTxt string

//go:embed data/undercover.txt
var undercoverTxt string

// Built-in word lists available to every room.
var (
	Base       = NewListFromLines(baseTxt)
	Duet       = NewListFromLines(duetTxt)
	Undercover = NewListFromLines(undercoverTxt)
)
