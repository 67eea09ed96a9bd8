package capture

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBGRXToNRGBA(t *testing.T) {
	// 2x2 image, stride padded to 12 bytes per row.
	data := []byte{
		0x01, 0x02, 0x03, 0x00, 0x04, 0x05, 0x06, 0x00, 0xee, 0xee, 0xee, 0xee,
		0x07, 0x08, 0x09, 0x00, 0x0a, 0x0b, 0x0c, 0x00, 0xee, 0xee, 0xee, 0xee,
	}
	img := bgrxToNRGBA(data, 2, 2, 12)

	want := []byte{
		0x03, 0x02, 0x01, 0xff, 0x06, 0x05, 0x04, 0xff,
		0x09, 0x08, 0x07, 0xff, 0x0c, 0x0b, 0x0a, 0xff,
	}
	if diff := cmp.Diff(want, img.Pix); diff != "" {
		t.Fatalf("pixels mismatch (-want +got):\n%s", diff)
	}
}

func TestBGRXToNRGBA_TruncatedData(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x00}
	img := bgrxToNRGBA(data, 2, 2, 8)

	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if img.Pix[0] != 0x03 || img.Pix[3] != 0xff {
		t.Fatalf("first pixel = %v", img.Pix[:4])
	}
	for _, b := range img.Pix[4:] {
		if b != 0 {
			t.Fatalf("pixels past the data must stay zero, got %v", img.Pix)
		}
	}
}
