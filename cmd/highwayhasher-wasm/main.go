//go:build wasip1

// Command highwayhasher-wasm is the runtime-less WebAssembly build of the
// session arena. Build it as a reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o highway.wasm ./cmd/highwayhasher-wasm
//
// The host writes keys and data into the page returned by highway_memory and
// passes offsets into that page to the other exports. Link with
// -ldflags "-X main.strict=true" to get negative error codes from append and
// finalize instead of silent no-ops.
package main

import (
	"unsafe"

	"edu/highwayhasher/internal/flatmem"
)

var strict string

var module = flatmem.New(flatmem.Config{Strict: strict == "true"})

//go:wasmexport highway_memory
func memoryBase() uint32 {
	return uint32(uintptr(unsafe.Pointer(&module.Memory()[0])))
}

//go:wasmexport highway_memory_size
func memorySize() uint32 { return flatmem.MemorySize }

//go:wasmexport highway_capacity
func capacity() int32 { return module.Capacity() }

//go:wasmexport highway_create
func create(h int32, keyPtr, keyLen uint32) int32 { return module.Create(h, keyPtr, keyLen) }

//go:wasmexport highway_append
func appendData(h int32, ptr, n uint32) int32 { return module.Append(h, ptr, n) }

//go:wasmexport highway_finalize64
func finalize64(h int32, out uint32) int32 { return module.Finalize64(h, out) }

//go:wasmexport highway_finalize128
func finalize128(h int32, out uint32) int32 { return module.Finalize128(h, out) }

//go:wasmexport highway_finalize256
func finalize256(h int32, out uint32) int32 { return module.Finalize256(h, out) }

//go:wasmexport highway_release
func release(h int32) int32 { return module.Release(h) }

func main() {}
