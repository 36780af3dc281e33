// HostAPI is the guest-facing operation surface: the typed bidirectional
// streaming interface a runtime's guest code uses to consume inputs and
// emit outputs, plus the host-environment escape hatches (attachment
// mapping, process start, socket connect, error set). One HostAPI is
// created per execution and owns that execution's input and output
// Channels exclusively.
package channel

import (
	"context"
	"net"
	"os"
	"runtime"
	"sync"

	"github.com/goodbyekansas/firm-sub000/pkg/functions"
)

// IteratorHandle identifies an open cursor to the guest. Handles are
// process-local and only valid for the lifetime of the owning execution.
type IteratorHandle uint64

// AttachmentMapper materializes an attachment into the execution's
// sandbox filesystem; implemented by the executor (which owns attachment
// fetch/cache) and injected here so the channel layer stays agnostic of
// registry/attachment-fetch concerns.
type AttachmentMapper interface {
	MapAttachment(ctx context.Context, name string, unpack bool) (path string, err error)
}

// ProcessStarter starts a host-environment process on behalf of the
// guest. Left abstract for the same reason as AttachmentMapper.
type ProcessStarter interface {
	StartProcess(ctx context.Context, command string, args []string) (pid int, err error)
}

// HostAPI dispatches the table of guest-facing operations against one
// execution's set of named channels.
type HostAPI struct {
	ctx context.Context

	mu       sync.Mutex
	inputs   map[string]*Channel
	outputs  map[string]*Channel
	cursors  map[IteratorHandle]*Cursor
	nextID   IteratorHandle

	attachments AttachmentMapper
	processes   ProcessStarter

	// functionError latches the message from a guest-reported
	// set_function_error call.
	functionError string
	hasError      bool

	// OnAppend is invoked synchronously after every successful Append on
	// an output channel, letting the executor publish a FunctionOutputChunk
	// on the streaming result feed immediately.
	OnAppend func(channelName string, v Value)
}

// NewHostAPI wires a HostAPI over the given input/output channel sets.
func NewHostAPI(ctx context.Context, inputs, outputs map[string]*Channel, attachments AttachmentMapper, processes ProcessStarter) *HostAPI {
	return &HostAPI{
		ctx:         ctx,
		inputs:      inputs,
		outputs:     outputs,
		cursors:     make(map[IteratorHandle]*Cursor),
		attachments: attachments,
		processes:   processes,
	}
}

func (h *HostAPI) inputChannel(key string) (*Channel, ApiResult) {
	c, ok := h.inputs[key]
	if !ok {
		return nil, ErrorResultf("unknown input channel %q", key)
	}
	return c, ApiResult{}
}

func (h *HostAPI) outputChannel(key string) (*Channel, ApiResult) {
	c, ok := h.outputs[key]
	if !ok {
		return nil, ErrorResultf("unknown output channel %q", key)
	}
	return c, ApiResult{}
}

// NextValue implements next_T.
func (h *HostAPI) NextValue(key string, t functions.ValueType, blocking bool) (Value, ApiResult) {
	c, res := h.inputChannel(key)
	if c == nil {
		return Value{}, res
	}
	return c.Next(t, blocking)
}

// ReadValues implements read_T.
func (h *HostAPI) ReadValues(key string, t functions.ValueType, blocking bool, n int) ([]Value, ApiResult) {
	c, res := h.inputChannel(key)
	if c == nil {
		return nil, res
	}
	return c.Read(t, blocking, n)
}

// OpenIter implements open_iter_T, returning a handle for subsequent
// IterNext/IterCollect calls.
func (h *HostAPI) OpenIter(key string, t functions.ValueType, fetchSize int, blocking bool) (IteratorHandle, ApiResult) {
	c, res := h.inputChannel(key)
	if c == nil {
		return 0, res
	}
	cur, res := c.OpenIterator(t, fetchSize, blocking)
	if cur == nil {
		return 0, res
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.cursors[id] = cur
	return id, OkResult()
}

func (h *HostAPI) cursor(handle IteratorHandle) (*Cursor, ApiResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.cursors[handle]
	if !ok {
		return nil, ErrorResultf("unknown iterator handle %d", handle)
	}
	return cur, ApiResult{}
}

// IterNext implements iter_next_T.
func (h *HostAPI) IterNext(handle IteratorHandle) (Value, ApiResult) {
	cur, res := h.cursor(handle)
	if cur == nil {
		return Value{}, res
	}
	return cur.Next()
}

// IterCollect implements iter_collect_T.
func (h *HostAPI) IterCollect(handle IteratorHandle) ([]Value, ApiResult) {
	cur, res := h.cursor(handle)
	if cur == nil {
		return nil, res
	}
	return cur.Collect()
}

// Append implements append_T, publishing each appended value to OnAppend
// (if set) only once the underlying Channel has accepted it.
func (h *HostAPI) Append(key string, values ...Value) ApiResult {
	c, res := h.outputChannel(key)
	if c == nil {
		return res
	}
	result := c.Append(values...)
	if result.Kind == Ok && h.OnAppend != nil {
		for _, v := range values {
			h.OnAppend(key, v)
		}
	}
	return result
}

// CloseOutput implements close_output.
func (h *HostAPI) CloseOutput(key string) ApiResult {
	c, res := h.outputChannel(key)
	if c == nil {
		return res
	}
	return c.Close()
}

// MapAttachment implements map_attachment.
func (h *HostAPI) MapAttachment(name string, unpack bool) (string, ApiResult) {
	if h.attachments == nil {
		return "", ErrorResultf("attachment mapping is not available in this execution")
	}
	path, err := h.attachments.MapAttachment(h.ctx, name, unpack)
	if err != nil {
		return "", ErrorResultf("%v", err)
	}
	return path, OkResult()
}

// HostPathExists implements host_path_exists.
func (h *HostAPI) HostPathExists(path string) (bool, ApiResult) {
	_, err := os.Stat(path)
	if err == nil {
		return true, OkResult()
	}
	if os.IsNotExist(err) {
		return false, OkResult()
	}
	return false, ErrorResultf("%v", err)
}

// GetHostOS implements get_host_os.
func (h *HostAPI) GetHostOS() (string, ApiResult) {
	return runtime.GOOS, OkResult()
}

// StartHostProcess implements start_host_process.
func (h *HostAPI) StartHostProcess(command string, args []string) (int, ApiResult) {
	if h.processes == nil {
		return 0, ErrorResultf("starting host processes is not available in this execution")
	}
	pid, err := h.processes.StartProcess(h.ctx, command, args)
	if err != nil {
		return 0, ErrorResultf("%v", err)
	}
	return pid, OkResult()
}

// Connect implements connect(addr) -> fd, returning a live net.Conn in
// place of a raw file descriptor (Go has no portable fd-from-conn
// extraction); callers embedding a real guest boundary adapt this to
// their sandbox's calling convention.
func (h *HostAPI) Connect(addr string) (net.Conn, ApiResult) {
	var d net.Dialer
	conn, err := d.DialContext(h.ctx, "tcp", addr)
	if err != nil {
		return nil, ErrorResultf("connect %q: %v", addr, err)
	}
	return conn, OkResult()
}

// SetFunctionError implements set_function_error: latches msg as the
// guest-reported error for this execution.
func (h *HostAPI) SetFunctionError(msg string) ApiResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hasError = true
	h.functionError = msg
	return OkResult()
}

// FunctionError returns the guest-reported error message, if any.
func (h *HostAPI) FunctionError() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.functionError, h.hasError
}

// Disable marks every channel owned by this HostAPI as belonging to a
// cancelled/terminated execution.
func (h *HostAPI) Disable() {
	for _, c := range h.inputs {
		c.Disable()
	}
	for _, c := range h.outputs {
		c.Disable()
	}
}

// CloseAllInputs marks every input Closed, used both for the common case
// of a fully-seeded parameter set and for cancellation.
func (h *HostAPI) CloseAllInputs() {
	for _, c := range h.inputs {
		c.CloseNow()
	}
}
