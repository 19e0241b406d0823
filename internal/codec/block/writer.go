package block

import "github.com/cinderfts/cinder/internal/postings"

// EncodedBlock is one block's header plus body bytes, ready to be
// appended to a posting file.
type EncodedBlock struct {
	Header Header
	Body   []byte
}

// EncodeTerm splits tuples (sorted by ascending DocID, one term's full
// posting list) into a chain of blocks of at most Limit postings each,
// wiring each block's NextOffset so the chain can be followed without
// knowing the block count ahead of time. startOffset is the absolute
// file offset the first block will be written at; each block's size is
// HeaderSize+len(Body), so callers append blocks sequentially at
// startOffset, startOffset+blocks[0] size, and so on.
func EncodeTerm(tuples []postings.Tuple, startOffset uint64) []EncodedBlock {
	if len(tuples) == 0 {
		return nil
	}
	var chunks [][]postings.Tuple
	for i := 0; i < len(tuples); i += Limit {
		end := i + Limit
		if end > len(tuples) {
			end = len(tuples)
		}
		chunks = append(chunks, tuples[i:end])
	}

	// First pass: encode each block's body independent of NextOffset, to
	// learn each block's byte size.
	bodies := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		_, body := Encode(chunk, 0)
		bodies[i] = body
	}

	offsets := make([]uint64, len(chunks)+1)
	offsets[0] = startOffset
	for i, body := range bodies {
		offsets[i+1] = offsets[i] + uint64(HeaderSize+len(body))
	}

	blocks := make([]EncodedBlock, len(chunks))
	for i, chunk := range chunks {
		next := uint64(0)
		if i < len(chunks)-1 {
			next = offsets[i+1]
		}
		header, body := Encode(chunk, next)
		blocks[i] = EncodedBlock{Header: header, Body: body}
	}
	return blocks
}
