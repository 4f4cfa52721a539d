// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package log_test

import (
	"reflect"
	"testing"

	"github.com/grailbio/gradual/log"
)

type outputBuffer struct {
	messages []string
}

func (o *outputBuffer) Output(calldepth int, s string) error {
	o.messages = append(o.messages, s)
	return nil
}

func TestTee(t *testing.T) {
	var b1, b2 outputBuffer
	l1 := log.New(&b1, log.InfoLevel)
	l2 := l1.Tee(&b2, "a.erl: ")
	l1.Printf("checking")
	l2.Error("bad clause")

	if got, want := b1.messages, []string{"checking", "a.erl: bad clause"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := b2.messages, []string{"bad clause"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLevels(t *testing.T) {
	var b outputBuffer
	l := log.New(&b, log.ErrorLevel)
	l.Print("dropped")
	l.Debug("dropped too")
	l.Error("kept")
	if got, want := b.messages, []string{"kept"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if l.At(log.DebugLevel) {
		t.Error("logger at DebugLevel")
	}
	if !l.At(log.ErrorLevel) {
		t.Error("not at ErrorLevel")
	}
}

func TestNil(t *testing.T) {
	var l *log.Logger
	l.Printf("into the void")
	l.Tee(nil, "p: ").Debug("also fine")
	if l.At(log.ErrorLevel) {
		t.Error("nil logger should be at no level")
	}
}
