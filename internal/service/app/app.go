// Package app is the thin TUI shell consuming the crypto envelope,
// relay client, keystore and conversation repository — the GUI chrome
// spec.md §1 calls out of scope for new invariants. Grounded on the
// teacher's internal/service/app (tview/tcell layout, QueueUpdateDraw
// pattern), rebuilt around stateless seal/open plus poll/stream
// instead of a Double Ratchet session.
package app

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"ghostwire/internal/log"
	"ghostwire/internal/model"
	"ghostwire/internal/protocol/envelope"
	"ghostwire/internal/repository/conversation"
	"ghostwire/internal/service/keystore"
	"ghostwire/internal/service/relayclient"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// PollInterval is the cadence of pollLoop's consume calls. pollLoop
// runs for the whole session, whether or not a stream subscription is
// active.
const PollInterval = 2 * time.Second

// App wires one local identity to one peer conversation.
type App struct {
	tui     *tview.Application
	chatbox *tview.TextView
	input   *tview.InputField

	relay    *relayclient.Client
	convRepo conversation.Repository

	identity *model.Identity
	peerPub  [32]byte
	peerHex  string

	selfToken string
	stream    *websocket.Conn

	cancel context.CancelFunc
}

// New constructs an App against a running relay at relayAddr, with
// identity persisted under keysDir.
func New(relayAddr, keysDir string, convRepo conversation.Repository) (*App, error) {
	id, err := keystore.New(keysDir).LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("app: load identity: %w", err)
	}
	return &App{
		tui:       tview.NewApplication(),
		relay:     relayclient.New(relayAddr),
		convRepo:  convRepo,
		identity:  id,
		selfToken: envelope.DeriveToken(id.Pub),
	}, nil
}

// Run starts a conversation with peerPubHex and blocks rendering the
// TUI until the user quits.
func (a *App) Run(ctx context.Context, peerPubHex string) error {
	peerPub, err := model.DecodeHexKey(peerPubHex)
	if err != nil {
		return fmt.Errorf("app: peer public key: %w", err)
	}
	a.peerPub = peerPub
	a.peerHex = peerPubHex

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.connectStream()
	go a.pollLoop(runCtx)

	a.renderUI()
	return nil
}

// Stop releases the stream connection and cancels background polling.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.stream != nil {
		a.stream.Close()
	}
}

func (a *App) renderUI() {
	a.chatbox = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.chatbox.SetBorder(true).SetTitle(fmt.Sprintf(" Chat with %s ", a.peerHex[:8]))

	a.input = tview.NewInputField().
		SetLabel("Message: ").
		SetFieldWidth(0)
	a.input.SetBorder(true).SetTitle(" New Message ")

	a.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := a.input.GetText()
		if text == "" {
			return
		}

		go func(msg string) {
			if err := a.SendMessage(context.Background(), msg); err != nil {
				a.tui.Suspend(func() {
					log.Error("send message failed", zap.Error(err))
				})
			}
		}(text)
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.chatbox, 0, 1, false).
		AddItem(a.input, 3, 0, true)

	if err := a.tui.SetRoot(layout, true).SetFocus(a.input).Run(); err != nil {
		log.Fatal("app: tui run failed", zap.Error(err))
	}
}

func (a *App) signingKey() ed25519.PrivateKey {
	if len(a.identity.SignPriv) == 0 {
		return nil
	}
	return ed25519.PrivateKey(a.identity.SignPriv)
}
