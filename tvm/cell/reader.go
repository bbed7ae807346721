package cell

type byteReader struct {
	data []byte
}

func newReader(data []byte) *byteReader {
	return &byteReader{
		data: data,
	}
}

func (r *byteReader) ReadBytes(num int) ([]byte, error) {
	if len(r.data) < num {
		return nil, ErrNotEnoughData(len(r.data), num)
	}

	return r.MustReadBytes(num), nil
}

func (r *byteReader) MustReadBytes(num int) []byte {
	ret := r.data[:num]
	r.data = r.data[num:]
	return ret
}

func (r *byteReader) ReadByte() (byte, error) {
	if len(r.data) < 1 {
		return 0, ErrNotEnoughData(len(r.data), 1)
	}

	return r.MustReadByte(), nil
}

func (r *byteReader) MustReadByte() byte {
	ret := r.data[0]
	r.data = r.data[1:]
	return ret
}

func (r *byteReader) LeftLen() int {
	return len(r.data)
}
