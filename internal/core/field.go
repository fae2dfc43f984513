package core

// WindowSum returns, for every cell of a size x size row-major field, the
// sum of values over the (2r+1)x(2r+1) window centred on it. Cells outside
// the grid count as zero. Computed with a summed-area table.
func WindowSum(values []int, size, r int) []int {
	stride := size + 1
	sat := make([]int, stride*stride)
	for y := 0; y < size; y++ {
		row := 0
		for x := 0; x < size; x++ {
			row += values[y*size+x]
			sat[(y+1)*stride+x+1] = sat[y*stride+x+1] + row
		}
	}

	out := make([]int, size*size)
	for y := 0; y < size; y++ {
		y0, y1 := max(0, y-r), min(size, y+r+1)
		for x := 0; x < size; x++ {
			x0, x1 := max(0, x-r), min(size, x+r+1)
			out[y*size+x] = sat[y1*stride+x1] - sat[y0*stride+x1] - sat[y1*stride+x0] + sat[y0*stride+x0]
		}
	}
	return out
}

// Convolve convolves a size x size row-major field with an odd-sized square
// kernel, zero padded. The kernel is flipped, so an impulse reproduces it.
func Convolve(field []float64, size int, kernel [][]float64) []float64 {
	k := len(kernel) / 2
	out := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			var sum float64
			for ky, row := range kernel {
				sy := y - ky + k
				if sy < 0 || sy >= size {
					continue
				}
				for kx, w := range row {
					sx := x - kx + k
					if sx < 0 || sx >= size || w == 0 {
						continue
					}
					sum += w * field[sy*size+sx]
				}
			}
			out[y*size+x] = sum
		}
	}
	return out
}
