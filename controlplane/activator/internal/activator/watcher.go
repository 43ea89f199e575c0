package activator

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	solanaws "github.com/gagliardetto/solana-go/rpc/ws"
)

// Watcher subscribes to program account notifications over websocket and
// signals when a fresh snapshot is worth taking. It only ever nudges the
// reconcile loop; the poll ticker remains the fallback when the socket is
// down, so a dead subscription degrades to plain polling.
type Watcher struct {
	log       *slog.Logger
	url       string
	programID solana.PublicKey
	notify    chan struct{}
}

func NewWatcher(log *slog.Logger, url string, programID solana.PublicKey) *Watcher {
	return &Watcher{
		log:       log,
		url:       url,
		programID: programID,
		notify:    make(chan struct{}, 1),
	}
}

func (w *Watcher) Notify() <-chan struct{} { return w.notify }

func (w *Watcher) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for {
		if err := w.watch(ctx, bo); err != nil {
			w.log.Warn("program subscription lost, falling back to polling", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(bo.NextBackOff()):
		}
	}
}

func (w *Watcher) watch(ctx context.Context, bo *backoff.ExponentialBackOff) error {
	client, err := solanaws.Connect(ctx, w.url)
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.ProgramSubscribeWithOpts(w.programID, solanarpc.CommitmentConfirmed, solana.EncodingBase64, nil)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	w.log.Info("subscribed to program account notifications", "program", w.programID.String())
	bo.Reset()

	for {
		if _, err := sub.Recv(ctx); err != nil {
			return err
		}
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}
