package rewrite

import (
	"bytes"
	"testing"
)

func TestApplyEdits(t *testing.T) {
	src := []byte("abcdefghij")

	tests := []struct {
		name    string
		edits   []edit
		want    string
		wantErr bool
	}{
		{
			name:  "no edits is a byte-identical copy",
			edits: nil,
			want:  "abcdefghij",
		},
		{
			name:  "single replacement",
			edits: []edit{{start: 3, end: 6, text: "XY"}},
			want:  "abcXYghij",
		},
		{
			name: "edits applied in offset order regardless of input order",
			edits: []edit{
				{start: 6, end: 8, text: "2"},
				{start: 0, end: 2, text: "1"},
			},
			want: "1cdef2ij",
		},
		{
			name:  "pure insertion",
			edits: []edit{{start: 5, end: 5, text: "-"}},
			want:  "abcde-fghij",
		},
		{
			name:  "pure deletion",
			edits: []edit{{start: 2, end: 5, text: ""}},
			want:  "abfghij",
		},
		{
			name: "overlapping edits rejected",
			edits: []edit{
				{start: 0, end: 5, text: "x"},
				{start: 3, end: 8, text: "y"},
			},
			wantErr: true,
		},
		{
			name:    "out of bounds rejected",
			edits:   []edit{{start: 5, end: 20, text: "x"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyEdits(src, tt.edits)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("applyEdits() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("applyEdits() error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("applyEdits() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyEdits_DoesNotAliasInput(t *testing.T) {
	src := []byte("hello")
	got, err := applyEdits(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	got[0] = 'H'
	if !bytes.Equal(src, []byte("hello")) {
		t.Error("applyEdits returned a slice aliasing its input")
	}
}
