package search

import (
	"bytes"
	"context"
	"os"

	"linequery/internal/dataset"
)

// MemoryMapped maps the dataset and scans it line by line without reading
// it into the heap. A zero-length file is not mappable and is reported as
// not found. Compressed datasets are decoded from the mapped region.
func MemoryMapped(ctx context.Context, path, query string) (bool, error) {
	if done, err := emptyQuery(path, query); done {
		return false, err
	}
	f, err := os.Open(path)
	if err != nil {
		return false, dataset.Wrap(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, dataset.Wrap(path, err)
	}
	if info.Size() == 0 {
		return false, nil
	}

	data, unmap, err := mapFile(f, int(info.Size()))
	if err != nil {
		return false, dataset.Wrap(path, err)
	}
	defer unmap()

	if dataset.IsCompressed(data) {
		data, err = dataset.DecompressBytes(data)
		if err != nil {
			return false, dataset.Wrap(path, err)
		}
	}
	found, err := scanMapped(ctx, data, []byte(query))
	return found, dataset.Wrap(path, err)
}

func scanMapped(ctx context.Context, data, query []byte) (bool, error) {
	for n := 0; len(data) > 0; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		if bytes.Equal(bytes.TrimSpace(line), query) {
			return true, nil
		}
	}
	return false, nil
}
