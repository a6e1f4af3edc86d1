package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("  hello  \n")), "Name", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
	if out.String() != "Name\n> " {
		t.Fatalf("unexpected prompt %q", out.String())
	}
}

func TestGetSimpleText_PartialLineAtEOF(t *testing.T) {
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("tail")), "p", io.Discard)
	if err != nil || got != "tail" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestGetSimpleText_EmptyEOF(t *testing.T) {
	_, err := GetSimpleText(bufio.NewReader(strings.NewReader("")), "p", io.Discard)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestGetPassword(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) { return []byte("pw"), nil }
	var out bytes.Buffer
	got, err := GetPassword("Secret", &out)
	if err != nil || string(got) != "pw" {
		t.Fatalf("got %q, %v", got, err)
	}
	if out.String() != "Secret: \n" {
		t.Fatalf("unexpected prompt %q", out.String())
	}

	readPassword = func(int) ([]byte, error) { return nil, errors.New("no tty") }
	if _, err := GetPassword("Secret", io.Discard); err == nil {
		t.Fatal("expected error")
	}
}
