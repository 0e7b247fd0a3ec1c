package archive

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"

	"badc0de.net/pkg/spritesplit/frames"
	"badc0de.net/pkg/spritesplit/ttesting"
)

func TestPackAndList(t *testing.T) {
	fs := []frames.Frame{
		{Index: 0, FileName: "hero_0.png", Data: []byte("zero")},
		{Index: 1, FileName: "hero_1.png", Data: []byte("one")},
		{Index: 2, FileName: "hero_2.png", Data: []byte("two")},
	}
	data, err := Pack(fs)
	ttesting.AssertNoError(t, "Pack", err)

	names, err := List(data)
	ttesting.AssertNoError(t, "List", err)
	if want := []string{"hero_0.png", "hero_1.png", "hero_2.png"}; !reflect.DeepEqual(names, want) {
		t.Errorf("entries = %v; want %v", names, want)
	}

	contents, err := Extract(data)
	ttesting.AssertNoError(t, "Extract", err)
	ttesting.AssertEqualString(t, "hero_1.png", string(contents["hero_1.png"]), "one")
}

func TestPackDuplicateNameOverwrites(t *testing.T) {
	fs := []frames.Frame{
		{FileName: "a_0.png", Data: []byte("first")},
		{FileName: "a_1.png", Data: []byte("middle")},
		{FileName: "a_0.png", Data: []byte("second")},
	}
	data, err := Pack(fs)
	ttesting.AssertNoError(t, "Pack", err)

	names, err := List(data)
	ttesting.AssertNoError(t, "List", err)
	if want := []string{"a_0.png", "a_1.png"}; !reflect.DeepEqual(names, want) {
		t.Errorf("entries = %v; want %v", names, want)
	}
	contents, err := Extract(data)
	ttesting.AssertNoError(t, "Extract", err)
	ttesting.AssertEqualString(t, "a_0.png", string(contents["a_0.png"]), "second")
}

func TestPackEmpty(t *testing.T) {
	data, err := Pack(nil)
	ttesting.AssertNoError(t, "Pack", err)
	names, err := List(data)
	ttesting.AssertNoError(t, "List", err)
	ttesting.AssertEqualInt(t, "entries", len(names), 0)
}

func TestPackFailureIsMonolithic(t *testing.T) {
	fs := []frames.Frame{
		{FileName: "ok_0.png", Data: []byte("fine")},
		{FileName: strings.Repeat("x", 1<<17) + ".png", Data: []byte("name too long")},
	}
	data, err := Pack(fs)
	if pkgerrors.Cause(err) != ErrPack {
		t.Fatalf("Pack = %v; want ErrPack", err)
	}
	if data != nil {
		t.Errorf("Pack returned %d bytes on failure; want none", len(data))
	}
	if msg := err.Error(); !strings.HasPrefix(msg, "could not pack archive: ") || len(msg) == len("could not pack archive: ") {
		t.Errorf("Pack error = %q; want the reason after \"could not pack archive: \"", msg)
	}
	var pe *PackError
	if !errors.As(err, &pe) || pe.Err == nil {
		t.Errorf("Pack error %v is not a *PackError with a reason", err)
	}
}

type failingWriter struct{}

var errDiskFull = errors.New("disk full")

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errDiskFull
}

func TestWriteReportsWriterError(t *testing.T) {
	fs := []frames.Frame{{FileName: "a_0.png", Data: []byte("data")}}
	err := Write(failingWriter{}, fs, time.Now())
	if err == nil {
		t.Fatalf("Write to a failing writer succeeded")
	}
}

func TestName(t *testing.T) {
	ttesting.AssertEqualString(t, "Name", Name("hero_walk"), "hero_walk.zip")
}
