package evaluator

// Timing 确认流程的时间窗口（毫秒）
type Timing struct {
	SilentMs int64 // 静默期：弹出确认前的等待
	ModalMs  int64 // 确认期：用户可取消的时长
}

var (
	humanMarkers = []string{"in_hand", "moving"}
	surfaceHints = []string{"face_down", "still_side", "in_pocket"}
)

// SelectTiming 根据信号强度与上下文选择自适应时间窗口，按顺序第一条命中生效：
//  1. 极强且非跌落：立即弹窗，确认期至少 30s
//  2. 像手持/移动：静默期至多 5s，确认期至少 25s
//  3. 像跌落或平放：静默期至多 5s，确认期至少 20s
func SelectTiming(d Decision, context string, defaults Timing) Timing {
	t := defaults

	switch {
	case d.VeryStrong() && !d.DropLike:
		t.SilentMs = 0
		t.ModalMs = max(defaults.ModalMs, 30_000)
	case hasAny(context, humanMarkers):
		t.SilentMs = min(defaults.SilentMs, 5_000)
		t.ModalMs = max(defaults.ModalMs, 25_000)
	case d.DropLike || hasAny(context, surfaceHints):
		t.SilentMs = min(defaults.SilentMs, 5_000)
		t.ModalMs = max(defaults.ModalMs, 20_000)
	}
	return t
}
