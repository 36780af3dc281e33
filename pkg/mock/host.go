package mock

import (
	"context"
	"sync"
)

// AttachmentMapper is a mock channel.AttachmentMapper.
type AttachmentMapper struct {
	mu sync.Mutex

	MapAttachmentInvoked bool
	MapAttachmentFn      func(ctx context.Context, name string, unpack bool) (string, error)
}

func NewAttachmentMapper() *AttachmentMapper {
	return &AttachmentMapper{
		MapAttachmentFn: func(ctx context.Context, name string, unpack bool) (string, error) { return "", nil },
	}
}

func (m *AttachmentMapper) MapAttachment(ctx context.Context, name string, unpack bool) (string, error) {
	m.mu.Lock()
	m.MapAttachmentInvoked = true
	m.mu.Unlock()
	return m.MapAttachmentFn(ctx, name, unpack)
}

// ProcessStarter is a mock channel.ProcessStarter.
type ProcessStarter struct {
	mu sync.Mutex

	StartProcessInvoked bool
	StartProcessFn      func(ctx context.Context, command string, args []string) (int, error)
}

func NewProcessStarter() *ProcessStarter {
	return &ProcessStarter{
		StartProcessFn: func(ctx context.Context, command string, args []string) (int, error) { return 0, nil },
	}
}

func (m *ProcessStarter) StartProcess(ctx context.Context, command string, args []string) (int, error) {
	m.mu.Lock()
	m.StartProcessInvoked = true
	m.mu.Unlock()
	return m.StartProcessFn(ctx, command, args)
}
