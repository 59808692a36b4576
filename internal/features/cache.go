package features

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

const cacheVersion = 1

// cacheHeader precedes the matrix payload in a cache file.
type cacheHeader struct {
	Version int
	ObjIDs  []string
	Labels  []int
}

func writeCache(path string, set *Set) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create feature cache: %w", err)
	}

	w := bufio.NewWriter(f)
	err = gob.NewEncoder(w).Encode(cacheHeader{
		Version: cacheVersion,
		ObjIDs:  set.ObjIDs,
		Labels:  set.Labels,
	})
	if err == nil {
		_, err = set.X.MarshalBinaryTo(w)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write feature cache: %w", err)
	}

	return os.Rename(tmp, path)
}

func readCache(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// gob reads through r directly when it is an io.ByteReader, leaving the
	// matrix payload unconsumed.
	r := bufio.NewReader(f)

	var hdr cacheHeader
	if err := gob.NewDecoder(r).Decode(&hdr); err != nil {
		return nil, fmt.Errorf("failed to decode cache header: %w", err)
	}
	if hdr.Version != cacheVersion {
		return nil, fmt.Errorf("unsupported cache version %d", hdr.Version)
	}

	var x mat.Dense
	if _, err := x.UnmarshalBinaryFrom(r); err != nil {
		return nil, fmt.Errorf("failed to decode cached matrix: %w", err)
	}

	rows, _ := x.Dims()
	if rows != len(hdr.ObjIDs) || rows != len(hdr.Labels) {
		return nil, fmt.Errorf("cache has %d matrix rows for %d ids and %d labels",
			rows, len(hdr.ObjIDs), len(hdr.Labels))
	}

	return &Set{ObjIDs: hdr.ObjIDs, Labels: hdr.Labels, X: &x}, nil
}
