// internal/studio/session.go
package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Corphon/ShortsArchitect/internal/errors"
	"github.com/Corphon/ShortsArchitect/internal/models"
	"github.com/Corphon/ShortsArchitect/internal/services"
)

const (
	// DefaultNoticeDelay 复制提示的显示时长
	DefaultNoticeDelay = 3 * time.Second

	NoticeCopied     = "Copied to clipboard"
	NoticeCopyFailed = "Copy failed. Try manually."
)

// ErrSubmissionInFlight 上一次提交尚未结束
var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// Generator 把简报合成为蓝图
type Generator interface {
	Generate(ctx context.Context, brief models.CreativeBrief) (*models.Blueprint, error)
}

// Clipboard 写入剪贴板
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// ClipboardFunc 函数适配器
type ClipboardFunc func(ctx context.Context, text string) error

func (f ClipboardFunc) WriteText(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Snapshot 会话在某一时刻的只读视图
type Snapshot struct {
	State     State                `json:"state"`
	Brief     models.CreativeBrief `json:"brief"`
	Blueprint *models.Blueprint    `json:"blueprint,omitempty"`
	Error     string               `json:"error,omitempty"`
	Notice    string               `json:"notice,omitempty"`
	Package   string               `json:"package,omitempty"`
}

// DefaultBrief 表单的预填内容
func DefaultBrief() models.CreativeBrief {
	return models.CreativeBrief{
		Topic:        "3 AI automations that save content creators 10 hours a week",
		Audience:     "ambitious solo creators and micro businesses that already post on TikTok or YouTube",
		Goal:         "drive newsletter sign-ups by showcasing quick wins and expertise",
		Duration:     "55 seconds",
		Tone:         "high-energy, trustworthy, story-driven",
		CallToAction: "Invite viewers to download a free workflow template linked in bio",
		Language:     "English",
	}
}

// Session 单个用户的提交状态机
// 同一时间只允许一个进行中的提交
type Session struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	gen  Generator
	clip Clipboard

	state     State
	brief     models.CreativeBrief
	blueprint *models.Blueprint
	errMsg    string

	notice      string
	noticeSeq   uint64
	noticeTimer *time.Timer
	noticeDelay time.Duration

	listeners []func(Snapshot)
	closed    bool
}

// NewSession 创建处于 Idle 状态、预填默认简报的会话
func NewSession(gen Generator, clip Clipboard) *Session {
	return &Session{
		gen:         gen,
		clip:        clip,
		state:       StateIdle,
		brief:       DefaultBrief(),
		noticeDelay: DefaultNoticeDelay,
	}
}

// SetNoticeDelay 调整提示自动清除的延迟
func (s *Session) SetNoticeDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.noticeDelay = d
	}
}

// OnChange 注册状态变化回调
// 回调按变化顺序串行执行，回调内不能再调用会话的方法
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot 返回当前视图
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State 返回当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// EditBrief 修改一个简报字段，已结束的提交回到 Idle
// 上一次的结果保留到下一次提交开始
func (s *Session) EditBrief(field, value string) error {
	s.mu.Lock()
	brief, ok := s.brief.WithField(field, value)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown brief field %q", field)
	}
	s.brief = brief
	if s.state.Settled() {
		s.state = StateIdle
	}
	s.commitLocked()
	return nil
}

// ResetBrief 恢复默认简报
func (s *Session) ResetBrief() {
	s.mu.Lock()
	s.brief = DefaultBrief()
	if s.state.Settled() {
		s.state = StateIdle
	}
	s.commitLocked()
}

// Submit 提交当前简报并阻塞到结果返回
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	s.state = StateSubmitting
	s.blueprint = nil
	s.errMsg = ""
	brief := s.brief
	s.commitLocked()

	blueprint, err := s.gen.Generate(ctx, brief)

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.errMsg = apperrors.UserMessage(err)
		if s.errMsg == "" {
			s.errMsg = "Unknown error"
		}
	} else {
		s.state = StateSuccess
		s.blueprint = blueprint
	}
	s.commitLocked()
	return err
}

// Package 从当前蓝图重新生成文本制作包
func (s *Session) Package() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return services.CompilePackage(s.blueprint)
}

// CopyPackage 把制作包写入剪贴板并显示提示，不改变提交状态
func (s *Session) CopyPackage(ctx context.Context) error {
	text := s.Package()
	if text == "" {
		return nil
	}

	err := s.clip.WriteText(ctx, text)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.setNoticeLocked(NoticeCopyFailed)
	} else {
		s.setNoticeLocked(NoticeCopied)
	}
	s.commitLocked()
	return err
}

// Close 停止待执行的定时器并移除回调
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
		s.noticeTimer = nil
	}
	s.listeners = nil
}

// setNoticeLocked 新提示会取消旧提示的自动清除
func (s *Session) setNoticeLocked(msg string) {
	s.noticeSeq++
	seq := s.noticeSeq
	s.notice = msg

	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
	}
	s.noticeTimer = time.AfterFunc(s.noticeDelay, func() {
		s.clearNotice(seq)
	})
}

func (s *Session) clearNotice(seq uint64) {
	s.mu.Lock()
	// 过期的回调不能清除更新的提示
	if s.closed || seq != s.noticeSeq || s.notice == "" {
		s.mu.Unlock()
		return
	}
	s.notice = ""
	s.noticeTimer = nil
	s.commitLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:     s.state,
		Brief:     s.brief,
		Blueprint: s.blueprint,
		Error:     s.errMsg,
		Notice:    s.notice,
		Package:   services.CompilePackage(s.blueprint),
	}
}

// commitLocked 在持有 mu 时调用，返回时 mu 已释放
func (s *Session) commitLocked() {
	snap := s.snapshotLocked()
	listeners := append([]func(Snapshot)(nil), s.listeners...)

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
