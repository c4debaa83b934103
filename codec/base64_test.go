package codec

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	inputs := [][]byte{
		{},
		{0},
		[]byte("a"),
		[]byte("ab"),
		[]byte("abc"),
		[]byte("hello, thread"),
		all,
	}
	for _, in := range inputs {
		out, err := Decode(Encode(in))
		if err != nil {
			t.Fatalf("Decode(Encode(%q)): %v", in, err)
		}
		if !bytes.Equal(out, in) {
			t.Errorf("round trip of %q = %q", in, out)
		}
	}
}

func TestDecodeVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "padded", input: "aGk=", want: "hi"},
		{name: "unpadded", input: "aGk", want: "hi"},
		{name: "url safe", input: "-_8=", want: "\xfb\xff"},
		{name: "empty", input: "", want: ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(test.input)
			if err != nil {
				t.Fatalf("Decode(%q): %v", test.input, err)
			}
			if string(got) != test.want {
				t.Errorf("Decode(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"!!!!", "a", "aGk=aGk="} {
		if _, err := Decode(input); !errors.Is(err, ErrDecode) {
			t.Errorf("Decode(%q) error = %v, want ErrDecode", input, err)
		}
	}
}
