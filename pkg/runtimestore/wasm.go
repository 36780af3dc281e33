// The built-in WebAssembly runtime: a wazero-hosted interpreter, Firm's
// principal built-in and the one guest-language bindings are written
// against. Host-call bridging (exporting a channel.HostAPI's operations
// as wazero host functions under an "env" module) follows the
// NewHostModuleBuilder/NewFunctionBuilder/Export idiom grounded on
// other_examples' wazero-based runtime (ec2-gossamer's
// lib/runtime/wazero/instance.go), generalized from a blockchain
// host-runtime ABI to Firm's channel API.
package runtimestore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/goodbyekansas/firm-sub000/pkg/channel"
	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

const WASMRuntimeName = "wasm"

// wasmInstance holds the wazero.Runtime for one "wasm" instance; the
// factory creates a new runtime for every instance, so each execution
// compiles its guest module in a runtime of its own and nothing is
// shared across executions.
type wasmInstance struct {
	runtime wazero.Runtime
}

// NewWASMFactory returns the Factory for the built-in "wasm" runtime,
// suitable for passing to Store.RegisterBuiltin(runtimestore.WASMRuntimeName, ...).
// sandboxDir and the Bundle are unused: the built-in wasm runtime carries
// no bundle of its own, it interprets whatever function code Invoke is
// given.
func NewWASMFactory() Factory {
	return func(ctx context.Context, bundle Bundle, sandboxDir string) (Instance, error) {
		return &wasmInstance{runtime: wazero.NewRuntime(ctx)}, nil
	}
}

func (w *wasmInstance) Invoke(ctx context.Context, functionCode []byte, entrypoint string, arguments map[string]string, hostAPI *channel.HostAPI) error {
	builder := w.runtime.NewHostModuleBuilder("env")
	exportHostAPI(builder, hostAPI)
	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("building host module: %w", err)
	}

	cfg := wazero.NewModuleConfig().WithStdout(nil).WithStderr(nil)
	mod, err := w.runtime.InstantiateWithConfig(ctx, functionCode, cfg)
	if err != nil {
		return fmt.Errorf("instantiating guest module: %w", err)
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction(entrypoint)
	if fn == nil {
		return fmt.Errorf("guest module does not export entrypoint %q", entrypoint)
	}
	if _, err := fn.Call(ctx); err != nil {
		return fmt.Errorf("guest function %q trapped: %w", entrypoint, err)
	}
	return nil
}

func (w *wasmInstance) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

// valueTag is next_T/append_T's wire encoding of functions.ValueType,
// since wazero host functions only pass integers and memory offsets.
type valueTag int32

const (
	tagString valueTag = iota
	tagInt
	tagFloat
	tagBool
	tagBytes
)

func (t valueTag) valueType() (functions.ValueType, bool) {
	switch t {
	case tagString:
		return functions.TypeString, true
	case tagInt:
		return functions.TypeInt, true
	case tagFloat:
		return functions.TypeFloat, true
	case tagBool:
		return functions.TypeBool, true
	case tagBytes:
		return functions.TypeBytes, true
	}
	return "", false
}

// encodeValue renders v's payload (excluding its type, carried
// separately as a valueTag) as the bytes next_T writes into guest
// memory and append_T expects to read from it: fixed 8-byte
// little-endian for int/float, a single byte for bool, and raw bytes
// for string/bytes.
func encodeValue(v channel.Value) []byte {
	switch v.Type {
	case functions.TypeInt:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.Int))
		return buf
	case functions.TypeFloat:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.Float))
		return buf
	case functions.TypeBool:
		if v.Bool {
			return []byte{1}
		}
		return []byte{0}
	case functions.TypeBytes:
		return v.Bytes
	default: // functions.TypeString
		return []byte(v.Str)
	}
}

func decodeValue(t functions.ValueType, data []byte) channel.Value {
	switch t {
	case functions.TypeInt:
		if len(data) < 8 {
			return channel.IntValue(0)
		}
		return channel.IntValue(int64(binary.LittleEndian.Uint64(data)))
	case functions.TypeFloat:
		if len(data) < 8 {
			return channel.FloatValue(0)
		}
		return channel.FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(data)))
	case functions.TypeBool:
		return channel.BoolValue(len(data) > 0 && data[0] != 0)
	case functions.TypeBytes:
		return channel.BytesValue(append([]byte(nil), data...))
	default: // functions.TypeString
		return channel.StringValue(string(data))
	}
}

// exportHostAPI wires channel.HostAPI's guest-facing operations as
// wazero host functions. Values cross the guest/host boundary as
// (tag, ptr, len) triples: the tag picks the encoding in
// encodeValue/decodeValue, ptr/len bound a region of the guest's own
// linear memory the guest allocated. next_T additionally takes an
// output buffer (outPtr, outCap) the guest pre-allocates and an
// outLenPtr the host writes the real encoded length to, since a host
// function can only return a single i32.
//
// open_iter_T/iter_next_T/iter_collect_T, start_host_process, and
// connect are not exported: iterator handles need a guest-side
// handle-lifecycle convention this module doesn't define, and
// process/socket access make little sense for a wasm guest running
// under wazero's default sandboxed module config (no inherited fds, no
// raw sockets). Wiring them would be unreachable surface, not a usable
// host call.
func exportHostAPI(builder wazero.HostModuleBuilder, hostAPI *channel.HostAPI) {
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, keyPtr, keyLen uint32) int32 {
			key := readString(mod, keyPtr, keyLen)
			res := hostAPI.CloseOutput(key)
			return int32(res.Kind)
		}).
		Export("close_output")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, msgPtr, msgLen uint32) int32 {
			msg := readString(mod, msgPtr, msgLen)
			res := hostAPI.SetFunctionError(msg)
			return int32(res.Kind)
		}).
		Export("set_function_error")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, outPtr, outCap uint32) int32 {
			os, _ := hostAPI.GetHostOS()
			return writeBytes(mod, outPtr, outCap, []byte(os))
		}).
		Export("get_host_os")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, keyPtr, keyLen uint32, tag int32, dataPtr, dataLen uint32) int32 {
			vt, ok := valueTag(tag).valueType()
			if !ok {
				return int32(channel.ErrorResult)
			}
			key := readString(mod, keyPtr, keyLen)
			data, _ := mod.Memory().Read(dataPtr, dataLen)
			res := hostAPI.Append(key, decodeValue(vt, data))
			return int32(res.Kind)
		}).
		Export("append_T")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, keyPtr, keyLen uint32, tag, blocking int32, outPtr, outCap, outLenPtr uint32) int32 {
			vt, ok := valueTag(tag).valueType()
			if !ok {
				return int32(channel.ErrorResult)
			}
			key := readString(mod, keyPtr, keyLen)
			v, res := hostAPI.NextValue(key, vt, blocking != 0)
			if res.Kind != channel.Ok {
				return int32(res.Kind)
			}
			encoded := encodeValue(v)
			lenBuf := make([]byte, 4)
			binary.LittleEndian.PutUint32(lenBuf, uint32(len(encoded)))
			mod.Memory().Write(outLenPtr, lenBuf)
			writeBytes(mod, outPtr, outCap, encoded)
			return int32(res.Kind)
		}).
		Export("next_T")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, namePtr, nameLen uint32, unpack int32, outPtr, outCap uint32) int32 {
			name := readString(mod, namePtr, nameLen)
			path, res := hostAPI.MapAttachment(name, unpack != 0)
			if res.Kind != channel.Ok {
				return int32(res.Kind)
			}
			return writeBytes(mod, outPtr, outCap, []byte(path))
		}).
		Export("map_attachment")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, pathPtr, pathLen uint32) int32 {
			path := readString(mod, pathPtr, pathLen)
			exists, res := hostAPI.HostPathExists(path)
			if res.Kind != channel.Ok {
				return int32(res.Kind)
			}
			if exists {
				return 1
			}
			return 0
		}).
		Export("host_path_exists")
}

func readString(mod api.Module, ptr, length uint32) string {
	b, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return ""
	}
	return string(b)
}

// writeBytes copies min(len(b), bufCap) bytes into the guest's memory at
// ptr and returns the number of bytes actually written, so a guest that
// under-allocated its buffer can tell and retry with a bigger one.
func writeBytes(mod api.Module, ptr, bufCap uint32, b []byte) int32 {
	n := uint32(len(b))
	if n > bufCap {
		n = bufCap
	}
	if n > 0 {
		mod.Memory().Write(ptr, b[:n])
	}
	return int32(n)
}
