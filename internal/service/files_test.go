package service

import "testing"

func TestUniqueFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		existing []string
		want     string
	}{
		{
			name:  "свободное имя остаётся как есть",
			input: "a.txt",
			want:  "a.txt",
		},
		{
			name:     "первая коллизия — суффикс _1",
			input:    "a.txt",
			existing: []string{"a.txt"},
			want:     "a_1.txt",
		},
		{
			name:     "вторая коллизия — суффикс _2",
			input:    "a.txt",
			existing: []string{"a.txt", "a_1.txt"},
			want:     "a_2.txt",
		},
		{
			name:     "дыры в нумерации заполняются",
			input:    "a.txt",
			existing: []string{"a.txt", "a_2.txt"},
			want:     "a_1.txt",
		},
		{
			name:     "имя без расширения",
			input:    "README",
			existing: []string{"README"},
			want:     "README_1",
		},
		{
			name:     "двойное расширение — суффикс перед последним",
			input:    "archive.tar.gz",
			existing: []string{"archive.tar.gz"},
			want:     "archive.tar_1.gz",
		},
		{
			name:     "регистр различается",
			input:    "A.txt",
			existing: []string{"a.txt"},
			want:     "A.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uniqueFileName(tt.input, tt.existing)
			if got != tt.want {
				t.Errorf("uniqueFileName(%q, %v) = %q, ожидалось %q",
					tt.input, tt.existing, got, tt.want)
			}
		})
	}
}
