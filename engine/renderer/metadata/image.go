package metadata

/**
 * @brief Decoded pixels of an image file, tightly packed with 8 bits per
 * channel and rows ordered top to bottom.
 */
type ImageResourceData struct {
	/** @brief 3 for opaque sources, 4 otherwise. */
	ChannelCount uint8
	Width        uint32
	Height       uint32
	Pixels       []uint8
}

// RowBytes returns the length in bytes of one row.
func (d *ImageResourceData) RowBytes() int {
	return int(d.Width) * int(d.ChannelCount)
}

// FlipY reverses the row order in place.
func (d *ImageResourceData) FlipY() {
	rowBytes := d.RowBytes()
	tmp := make([]byte, rowBytes)
	for top, bottom := 0, int(d.Height)-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := d.Pixels[top*rowBytes : (top+1)*rowBytes]
		b := d.Pixels[bottom*rowBytes : (bottom+1)*rowBytes]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
