package phonemize

// chunk is a contiguous slice of input lines assigned to one worker.
// start is the offset of the first line in the original input, kept for
// error reporting; index drives the order-preserving merge.
type chunk struct {
	index int
	start int
	lines []string
}

// chunkLines splits lines into min(njobs, len(lines)) contiguous chunks
// whose sizes differ by at most one. The remainder goes to the first
// chunks, so 10 lines over 4 jobs split 3,3,2,2. Concatenating the
// chunks in index order reproduces the input exactly.
func chunkLines(lines []string, njobs int) []chunk {
	if njobs < 1 {
		njobs = 1
	}
	n := len(lines)
	k := njobs
	if n < k {
		k = n
	}
	if k == 0 {
		return nil
	}

	size := n / k
	rem := n % k

	chunks := make([]chunk, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		sz := size
		if i < rem {
			sz++
		}
		chunks = append(chunks, chunk{index: i, start: start, lines: lines[start : start+sz]})
		start += sz
	}
	return chunks
}
