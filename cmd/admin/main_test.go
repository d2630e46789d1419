package main

import (
	"bytes"
	"testing"
)

func TestCheckedRLE(t *testing.T) {
	mats := append(bytes.Repeat([]byte{1}, 300), 2, 2, 0)
	enc, runs, err := checkedRLE(mats)
	if err != nil {
		t.Fatalf("checkedRLE: %v", err)
	}
	if runs != 3 || enc == "" {
		t.Fatalf("runs=%d enc=%q", runs, enc)
	}

	enc, runs, err = checkedRLE(nil)
	if err != nil || runs != 0 || enc != "" {
		t.Fatalf("empty chunk: enc=%q runs=%d err=%v", enc, runs, err)
	}
}
