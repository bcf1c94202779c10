package fingerprint

import (
	"strings"
	"testing"

	"github.com/ternarybob/transcribe-service/internal/models"
)

func sum(body string, opts models.Options) string {
	w := New()
	_, _ = w.Write([]byte(body))
	return w.Finish(opts)
}

// TestFingerprint_Deterministic verifies identical bytes+options always
// produce the same fingerprint.
func TestFingerprint_Deterministic(t *testing.T) {
	opts := models.Options{Language: "en"}
	a := sum("same audio bytes", opts)
	b := sum("same audio bytes", opts)
	if a != b {
		t.Errorf("fingerprint not deterministic: %q != %q", a, b)
	}
}

// TestFingerprint_DiffersByBody verifies different audio bytes produce
// different fingerprints.
func TestFingerprint_DiffersByBody(t *testing.T) {
	opts := models.Options{}
	a := sum("audio one", opts)
	b := sum("audio two", opts)
	if a == b {
		t.Error("expected different fingerprints for different audio bytes")
	}
}

// TestFingerprint_DiffersByOptions verifies that options materially
// affecting transcription output participate in the fingerprint.
func TestFingerprint_DiffersByOptions(t *testing.T) {
	tests := []struct {
		name string
		a    models.Options
		b    models.Options
	}{
		{"language differs", models.Options{Language: "en"}, models.Options{Language: "es"}},
		{"vad filter differs", models.Options{VADFilter: false}, models.Options{VADFilter: true}},
		{"initial prompt differs", models.Options{InitialPrompt: "one"}, models.Options{InitialPrompt: "two"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := sum("identical bytes", tt.a)
			fb := sum("identical bytes", tt.b)
			if fa == fb {
				t.Errorf("expected different fingerprints for options %+v vs %+v", tt.a, tt.b)
			}
		})
	}
}

// TestFingerprint_IgnoresUnrelatedFields covers filename and caller
// identity: neither is an input of Write/Finish (which take only the bytes
// and models.Options), so two submissions that share bytes and options hash
// the same whatever their filename or caller. The test checks that equality.
func TestFingerprint_IgnoresUnrelatedFields(t *testing.T) {
	opts := models.Options{Language: "en"}
	a := sum("identical bytes", opts)
	b := sum("identical bytes", opts)
	if a != b {
		t.Error("expected identical fingerprints when only caller-scoped fields would differ")
	}
}

// TestFingerprint_HexEncoded verifies the output is lowercase hex of the
// expected SHA-256 length.
func TestFingerprint_HexEncoded(t *testing.T) {
	got := sum("anything", models.Options{})
	if len(got) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(got))
	}
	if strings.ToLower(got) != got {
		t.Errorf("fingerprint %q is not lowercase hex", got)
	}
}

// TestFingerprint_StreamedWritesMatchSingleWrite verifies that writing in
// chunks (as io.TeeReader/io.Copy would) produces the same result as one
// big write.
func TestFingerprint_StreamedWritesMatchSingleWrite(t *testing.T) {
	opts := models.Options{Language: "en"}

	whole := New()
	_, _ = whole.Write([]byte("hello world"))
	wantFp := whole.Finish(opts)

	chunked := New()
	for _, chunk := range []string{"hel", "lo ", "wor", "ld"} {
		_, _ = chunked.Write([]byte(chunk))
	}
	gotFp := chunked.Finish(opts)

	if gotFp != wantFp {
		t.Errorf("chunked fingerprint = %q, want %q", gotFp, wantFp)
	}
}
