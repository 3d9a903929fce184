package utils

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func TestSha512String(t *testing.T) {
	if got := Sha512String("secret"); len(got) != 128 {
		t.Errorf("hex digest length = %d, want 128", len(got))
	}
	if Sha512String("a") == Sha512String("b") {
		t.Error("different inputs hashed to the same digest")
	}
}

func TestRand16BytesToBase62(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token := Rand16BytesToBase62()
		if token == "" {
			t.Fatal("empty token")
		}
		for _, r := range token {
			if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
				t.Fatalf("token %q contains non-base62 rune %q", token, r)
			}
		}
		if seen[token] {
			t.Fatalf("token %q repeated", token)
		}
		seen[token] = true
	}
}

func TestCreateThumb(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 640, 480))
	var in, out bytes.Buffer
	if err := jpeg.Encode(&in, src, nil); err != nil {
		t.Fatal(err)
	}
	result, err := CreateThumb(320, &in, &out)
	if err != nil {
		t.Fatal(err)
	}
	if result.NewX != 320 || result.NewY != 240 {
		t.Errorf("thumb size = %dx%d, want 320x240", result.NewX, result.NewY)
	}
	if result.OldX != 640 || result.OldY != 480 {
		t.Errorf("original size = %dx%d, want 640x480", result.OldX, result.OldY)
	}
	if int64(out.Len()) != result.ThumbSize || result.ThumbSize == 0 {
		t.Errorf("written %d bytes, reported %d", out.Len(), result.ThumbSize)
	}
}
