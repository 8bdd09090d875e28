package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vimal20002/tchegl-frontend/internal/metrics"
)

// State はキャッシュエントリの状態を表す。
type State string

const (
	// StateAbsent は未取得状態。
	StateAbsent State = "absent"
	// StateLoading はフェッチ実行中状態。
	StateLoading State = "loading"
	// StateFresh は取得済みで有効な状態。
	StateFresh State = "fresh"
	// StateStale は無効化済みで次の読み取りで再フェッチが必要な状態。
	StateStale State = "stale"
	// StateError はフェッチ失敗状態。エラー値が記録される。
	StateError State = "error"
)

// FetchFunc はキャッシュミス時にリソースを取得する関数。
type FetchFunc func(ctx context.Context) (any, error)

// Entry はエントリ状態のスナップショット。ビューの状態表示に使用する。
type Entry struct {
	Value     any
	FetchedAt time.Time
	State     State
	Err       error
}

// EventType は購読者へ通知されるイベントの種別。
type EventType string

const (
	// EventInvalidated はエントリが無効化されたことを示す。
	// 購読しているビューは次の描画でGetを呼び直す。
	EventInvalidated EventType = "invalidated"
	// EventUpdated はフェッチ完了で値が更新されたことを示す。
	EventUpdated EventType = "updated"
)

// Event はキャッシュキーに対する変更通知。
type Event struct {
	Key  string
	Type EventType
}

// entry はキャッシュエントリの内部表現。
type entry struct {
	state     State
	value     any
	err       error
	fetchedAt time.Time

	// generation は無効化のたびに増加する。フェッチ開始時の値と
	// 完了時の値が異なる場合、その結果は陳腐として保存される。
	generation uint64

	inflight *inflight
}

// inflight は実行中フェッチの共有結果。
// doneがcloseされた後にvalue/errが読み取り可能になる。
// genはフェッチ開始時点のエントリ世代。エントリの現在世代と異なる場合、
// このフェッチの結果は無効化前のデータであり、無効化後に開始した
// 読み取りへ返してはならない。
type inflight struct {
	done  chan struct{}
	gen   uint64
	value any
	err   error
}

// subscriber はキープレフィックスへの変更通知の購読者。
type subscriber struct {
	prefix string
	ch     chan Event
}

// Cache はリソースのクエリキャッシュ。
// 全操作はゴルーチンセーフ。値の取得はGet、陳腐化はInvalidate系で行い、
// TTLによる自動失効は行わない（無効化駆動）。
type Cache struct {
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu        sync.Mutex
	entries   map[string]*entry
	subs      map[int]*subscriber
	nextSubID int
}

// New はCacheを生成する。
func New(collector metrics.MetricsCollector, logger *slog.Logger) *Cache {
	if collector == nil {
		collector = metrics.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		logger:  logger,
		metrics: collector,
		entries: make(map[string]*entry),
		subs:    make(map[int]*subscriber),
	}
}

// Get はキーの値を返す。
// エントリがfreshであればキャッシュ値を返す。それ以外の場合はフェッチを
// 開始してエントリをloadingに遷移させ、完了を待って結果を返す。
// 同一キーのフェッチが既に実行中の場合は新たなフェッチを発行せず、
// 実行中のフェッチの完了に合流する。ただしフェッチ開始後にエントリが
// 無効化されている場合は合流せず、完了を待ってから改めてフェッチする
// （無効化の適用後に開始した読み取りは無効化前のデータを観測しない）。
//
// 呼び出し元のctxキャンセルは待機のみを打ち切り、実行中のフェッチ自体は
// キャンセルしない。他の読み取りが同じフェッチに合流している可能性があるため。
func (c *Cache) Get(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	k := key.String()

	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		e = &entry{state: StateAbsent}
		c.entries[k] = e
	}

	if e.state == StateFresh {
		c.metrics.RecordCacheHit(key.Kind)
		value := e.value
		c.mu.Unlock()
		return value, nil
	}

	if e.inflight != nil {
		fl := e.inflight
		if e.generation != fl.gen {
			// 実行中のフェッチは無効化より前に発行されたもの。
			// この読み取りは無効化の適用後に開始しているため、その結果を
			// 観測してはならない。完了を待ってから取得をやり直す。
			c.mu.Unlock()
			select {
			case <-fl.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return c.Get(ctx, key, fetch)
		}

		c.metrics.RecordCacheCoalesced(key.Kind)
		c.mu.Unlock()

		select {
		case <-fl.done:
			return fl.value, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	fl := &inflight{done: make(chan struct{}), gen: e.generation}
	e.inflight = fl
	e.state = StateLoading
	c.metrics.RecordCacheMiss(key.Kind)
	c.mu.Unlock()

	// フェッチは呼び出し元のキャンセルから切り離す。
	// ビューからの離脱は結果への関心を失うだけで、合流中の他の読み取りの
	// ためにネットワーク操作自体は継続させる。
	value, err := fetch(context.WithoutCancel(ctx))

	c.mu.Lock()
	fl.value = value
	fl.err = err
	close(fl.done)
	if e.inflight == fl {
		e.inflight = nil
	}

	if err != nil {
		e.state = StateError
		e.err = err
		c.logger.Warn("キャッシュフェッチに失敗しました",
			slog.String("key", k),
			slog.String("error", err.Error()),
		)
	} else {
		e.value = value
		e.err = nil
		e.fetchedAt = time.Now()
		if e.generation != fl.gen {
			// フェッチ中に無効化された場合、待機中の読み取りへは結果を
			// 返しつつエントリは陳腐として保存する。無効化後に開始した
			// 読み取りが無効化前のデータを観測しないようにするため。
			e.state = StateStale
		} else {
			e.state = StateFresh
			c.notifyLocked(k, EventUpdated)
		}
	}
	c.mu.Unlock()

	return value, err
}

// Snapshot はエントリ状態のスナップショットを返す。
// エントリが存在しない場合はStateAbsentのエントリを返す。
func (c *Cache) Snapshot(key Key) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return Entry{State: StateAbsent}
	}
	return Entry{
		Value:     e.value,
		FetchedAt: e.fetchedAt,
		State:     e.state,
		Err:       e.err,
	}
}

// Invalidate はキーに一致するエントリを陳腐化する。
// 次のGetで再フェッチが発行される。購読者には無効化イベントが通知される。
func (c *Cache) Invalidate(key Key) {
	c.invalidateByPrefix(key.String(), key.Kind)
}

// InvalidatePrefix は種別プレフィックスに一致する全エントリを陳腐化する。
// 一覧リソースと識別子付きリソースの両方をまとめて無効化できる。
func (c *Cache) InvalidatePrefix(kind string) {
	c.invalidateByPrefix(kind, kind)
}

func (c *Cache) invalidateByPrefix(prefix, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	invalidated := 0
	for k, e := range c.entries {
		if !matchesPrefix(k, prefix) {
			continue
		}
		e.generation++
		if e.state == StateFresh || e.state == StateError {
			e.state = StateStale
		}
		invalidated++
		c.notifyLocked(k, EventInvalidated)
	}

	if invalidated > 0 {
		c.metrics.RecordCacheInvalidation(kind)
		c.logger.Debug("キャッシュを無効化しました",
			slog.String("prefix", prefix),
			slog.Int("entries", invalidated),
		)
	}
}

// Subscribe はプレフィックスに一致するキーの変更通知チャネルを返す。
// 返される解除関数を呼ぶと購読が終了しチャネルがcloseされる。
// 通知は描画フレームワークから独立しており、受信が追いつかない場合は
// イベントを取りこぼす（最新状態はGet/Snapshotで取得できる）。
func (c *Cache) Subscribe(prefix string) (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	sub := &subscriber{
		prefix: prefix,
		ch:     make(chan Event, 16),
	}
	c.subs[id] = sub

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if s, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// notifyLocked は購読者へイベントを通知する。c.muを保持して呼ぶこと。
func (c *Cache) notifyLocked(key string, typ EventType) {
	for _, sub := range c.subs {
		if !matchesPrefix(key, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- Event{Key: key, Type: typ}:
		default:
			// 購読者が追いついていない場合は取りこぼす
		}
	}
}
