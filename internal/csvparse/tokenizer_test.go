package csvparse

import (
	"reflect"
	"testing"
)

func TestTokenizeDelimiterDetection(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want [][]string
	}{
		{
			name: "comma",
			in:   "a,b,c\n1,2,3\n",
			want: [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name: "semicolon",
			in:   "a;b;c\n1;2;3\n",
			want: [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name: "semicolon wins when both present on first line",
			in:   "a;b,c\n1;2,3\n",
			want: [][]string{{"a", "b,c"}, {"1", "2,3"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenizeBOMAndLineEndings(t *testing.T) {
	in := "\uFEFFPost ID,Likes\r\n123,45\r\n"
	got := Tokenize(in)
	want := [][]string{{"Post ID", "Likes"}, {"123", "45"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeQuotedFields(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want [][]string
	}{
		{
			name: "delimiter inside quotes",
			in:   "id,caption\n1,\"hello, world\"\n",
			want: [][]string{{"id", "caption"}, {"1", "hello, world"}},
		},
		{
			name: "escaped double quote",
			in:   "id,caption\n1,\"she said \"\"hi\"\"\"\n",
			want: [][]string{{"id", "caption"}, {"1", `she said "hi"`}},
		},
		{
			name: "newline inside quotes",
			in:   "id,caption\n1,\"line one\nline two\"\n",
			want: [][]string{{"id", "caption"}, {"1", "line one\nline two"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenizeDropsNoiseRows(t *testing.T) {
	in := "a,b\n\n,,\nonly-one-field\n1,2\n"
	got := Tokenize(in)
	want := [][]string{{"a", "b"}, {"1", "2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	if got := Tokenize(""); got != nil {
		t.Errorf("Tokenize(\"\") = %v, want nil", got)
	}
}

func TestParseSkipsMetadataPreamble(t *testing.T) {
	in := "Relatório gerado em,2024-06-01\n" +
		"Conta,@acme\n" +
		"Identificação do post,Link permanente,Curtidas\n" +
		"abc123,https://insta/p/abc123,10\n"

	headers, rows := Parse(in)
	wantHeaders := []string{"identificação do post", "link permanente", "curtidas"}
	if !reflect.DeepEqual(headers, wantHeaders) {
		t.Errorf("headers = %v, want %v", headers, wantHeaders)
	}
	if len(rows) != 1 || rows[0][0] != "abc123" {
		t.Errorf("rows = %v, want single data row", rows)
	}
}

func TestParseLowercasesHeaders(t *testing.T) {
	headers, rows := Parse("Post ID,Likes\n1,2\n")
	if !reflect.DeepEqual(headers, []string{"post id", "likes"}) {
		t.Errorf("headers = %v", headers)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %v, want 1 row", rows)
	}
}

func TestParseTooFewRows(t *testing.T) {
	headers, rows := Parse("Post ID,Likes\n")
	if headers != nil || rows != nil {
		t.Errorf("Parse() = %v, %v, want nil, nil", headers, rows)
	}
}

func TestLocateHeader(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want int
	}{
		{
			name: "no preamble",
			rows: [][]string{{"post id", "likes"}, {"1", "2"}},
			want: 0,
		},
		{
			name: "anchor on third row",
			rows: [][]string{
				{"Relatório", "2024"},
				{"Conta", "@acme"},
				{"Identificação do post", "Curtidas"},
				{"1", "2"},
			},
			want: 2,
		},
		{
			name: "daily export data+primary signature",
			rows: [][]string{
				{"Relatório", "2024"},
				{"Data", "Primary"},
				{"01/02/2024", "10"},
			},
			want: 1,
		},
		{
			name: "no anchor defaults to first row",
			rows: [][]string{{"foo", "bar"}, {"1", "2"}},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocateHeader(tt.rows); got != tt.want {
				t.Errorf("LocateHeader() = %d, want %d", got, tt.want)
			}
		})
	}
}
