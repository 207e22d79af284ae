// Package digester streams files and readers through HighwayHash sessions,
// one session per input, spreading inputs over a worker pool.
package digester

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"edu/highwayhasher/internal/highway"
	"edu/highwayhasher/pkg/workerpool"
)

// DefaultChunkSize is the read size used when Options.ChunkSize is unset.
const DefaultChunkSize = 64 * 1024

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Options struct {
	Workers   int
	LogPath   string
	Event     func(event string, kv map[string]any)
	ChunkSize int
	Key       highway.Key
	Width     highway.Width
}

type Result struct {
	Name     string        `json:"name"`
	Digest   string        `json:"digest,omitempty"`
	Bytes    uint64        `json:"bytes"`
	Duration time.Duration `json:"duration_ns"`
	Err      error         `json:"-"`
}

type Digester struct {
	opts    Options
	logMu   sync.Mutex
	logFile *os.File
}

func New(opts Options) *Digester {
	if opts.Width == 0 {
		opts.Width = highway.Width64
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	d := &Digester{opts: opts}
	if opts.LogPath != "" {
		if f, err := os.Create(opts.LogPath); err == nil {
			d.logFile = f
		}
	}
	return d
}

func (d *Digester) Close() error {
	if d.logFile != nil {
		return d.logFile.Close()
	}
	return nil
}

func (d *Digester) logEvent(event string, kv map[string]any) {
	rec := map[string]any{"ts": time.Now().Format(time.RFC3339Nano), "event": event}
	for k, v := range kv { rec[k] = v }
	if d.logFile != nil {
		b, _ := json.Marshal(rec)
		d.logMu.Lock()
		_, _ = d.logFile.Write(append(b, '\n'))
		d.logMu.Unlock()
	}
	if d.opts.Event != nil {
		d.opts.Event(event, rec)
	}
}

// SumReader hashes everything r yields, reading ChunkSize bytes at a time and
// checking ctx between chunks.
func (d *Digester) SumReader(ctx context.Context, name string, r io.Reader) (Result, error) {
	start := time.Now()
	res := Result{Name: name}
	sess := highway.NewSession(d.opts.Key)
	buf := make([]byte, d.opts.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if aerr := sess.Append(buf[:n]); aerr != nil {
				return res, aerr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}
	}
	sum, err := sess.Finalize(d.opts.Width)
	if err != nil {
		return res, err
	}
	res.Digest = hex.EncodeToString(sum)
	res.Bytes = sess.Len()
	res.Duration = time.Since(start)
	return res, nil
}

// SumFile hashes one file from disk.
func (d *Digester) SumFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{Name: path}, err
	}
	defer f.Close()
	return d.SumReader(ctx, path, f)
}

// SumFiles hashes paths concurrently. Results come back in input order; a
// failure on one file is recorded in its Result and does not stop the rest.
func (d *Digester) SumFiles(ctx context.Context, paths []string) ([]Result, error) {
	start := time.Now()
	results := make([]Result, len(paths))

	workers := d.opts.Workers
	if workers <= 0 { workers = runtime.NumCPU() }
	if workers > len(paths) { workers = len(paths) }
	d.logEvent("start", map[string]any{"workers": workers, "files": len(paths), "width": int(d.opts.Width)})

	var total uint64
	var failed int64
	pool := workerpool.New(ctx, workers, func(ctx context.Context, i int) {
		res, err := d.SumFile(ctx, paths[i])
		if err != nil {
			res.Err = err
			atomic.AddInt64(&failed, 1)
			d.logEvent("error", map[string]any{"file": paths[i], "error": err.Error()})
		} else {
			atomic.AddUint64(&total, res.Bytes)
			d.logEvent("file", map[string]any{"file": paths[i], "digest": res.Digest, "bytes": res.Bytes})
		}
		results[i] = res
	})
	for i := range paths {
		if !pool.Submit(i) {
			break
		}
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	d.logEvent("done", map[string]any{
		"files": len(paths), "failed": atomic.LoadInt64(&failed),
		"bytes": atomic.LoadUint64(&total), "duration_ms": time.Since(start).Milliseconds(),
	})
	return results, nil
}
