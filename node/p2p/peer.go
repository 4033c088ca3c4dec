package p2p

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"witnessdag.dev/core/dag"
)

type PeerRole int

const (
	PeerRoleUnknown PeerRole = iota
	PeerRoleInbound
	PeerRoleOutbound
)

// PeerHandler is implemented by the node package: one method per spec
// §6.2 peer message, grounded on the teacher's PeerHandler (OnHeaders/
// OnInv/...) generalized from a blockchain's inv/getdata catalogue to
// witnessdag's catchup/hash-tree/joint/light-wallet catalogue.
type PeerHandler interface {
	// OnCatchupRequest answers catchup_request. A nil response with a nil
	// error means "nothing to send" (peer is already caught up).
	OnCatchupRequest(peer *Peer, req CatchupRequestPayload) (*CatchupChainPayload, error)
	// OnGetHashTree answers get_hash_tree.
	OnGetHashTree(peer *Peer, req GetHashTreePayload) (*HashTreeBatchPayload, error)
	// OnNewJoint handles an unsolicited unit push.
	OnNewJoint(peer *Peer, joint NewJointPayload) error
	// OnLightGetHistory answers light_get_history.
	OnLightGetHistory(peer *Peer, req LightGetHistoryPayload) (*HistoryPayload, error)
	// OnLightGetAAResponses answers light_get_aa_responses.
	OnLightGetAAResponses(peer *Peer, req LightGetAAResponsesPayload) (*AAResponsePayload, error)
}

type PeerConfig struct {
	Magic       uint32
	GenesisUnit string

	Hash dag.HashProvider

	OurVersion VersionPayload

	// IdleTimeout, if non-zero, sets a read deadline per message so a
	// silent peer doesn't pin a goroutine forever.
	IdleTimeout time.Duration
}

// Peer wraps one connection and the ban-score state accumulated against
// it; Run drives its message loop.
type Peer struct {
	Conn   net.Conn
	Role   PeerRole
	Config PeerConfig

	PeerVersion VersionPayload

	Ban BanScore
}

func NewPeer(conn net.Conn, role PeerRole, cfg PeerConfig) (*Peer, error) {
	if conn == nil {
		return nil, fmt.Errorf("p2p: peer: nil conn")
	}
	if cfg.Hash == nil {
		return nil, fmt.Errorf("p2p: peer: nil hash provider")
	}
	return &Peer{Conn: conn, Role: role, Config: cfg}, nil
}

func (p *Peer) Handshake() error {
	res, err := Handshake(p.Conn, p.Config.Hash, p.Config.Magic, p.Config.OurVersion, p.Config.GenesisUnit)
	if err != nil {
		return err
	}
	p.PeerVersion = res.PeerVersion
	return nil
}

func (p *Peer) Send(command string, payload []byte) error {
	return WriteMessage(p.Conn, p.Config.Hash, p.Config.Magic, command, payload)
}

func (p *Peer) reject(command string, code dag.ErrorCode, reason string) {
	rp, err := EncodeRejectPayload(RejectPayload{Message: command, Code: code, Reason: reason})
	if err != nil {
		return
	}
	_ = p.Send(CmdReject, rp)
}

// Run performs the handshake and then services messages until ctx is
// canceled, the connection closes, or the peer is banned.
func (p *Peer) Run(ctx context.Context, h PeerHandler) error {
	if h == nil {
		return fmt.Errorf("p2p: peer: nil handler")
	}
	if err := p.Handshake(); err != nil {
		return err
	}

	if ctx != nil {
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = p.Conn.Close()
			case <-done:
			}
		}()
		defer close(done)
	}

	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		if p.Config.IdleTimeout > 0 {
			_ = p.Conn.SetReadDeadline(time.Now().Add(p.Config.IdleTimeout))
		}

		msg, rerr := ReadMessage(p.Conn, p.Config.Hash, p.Config.Magic)
		if rerr != nil {
			now := time.Now()
			p.Ban.Add(now, rerr.BanScoreDelta)
			if p.Ban.ShouldBan(now) {
				return fmt.Errorf("p2p: peer: banned (score=%d): %w", p.Ban.Score(now), rerr.Err)
			}
			if rerr.Disconnect {
				return rerr
			}
			continue
		}

		now := time.Now()
		if p.Ban.ShouldThrottle(now) {
			time.Sleep(ThrottleDelay)
		}

		if err := p.dispatch(msg, h, now); err != nil {
			return err
		}
	}
}

func (p *Peer) dispatch(msg *Message, h PeerHandler, now time.Time) error {
	switch msg.Command {
	case CmdPing:
		pp, err := DecodePingPayload(msg.Payload)
		if err != nil {
			p.Ban.Add(now, BanScoreMalformedPayload)
			return nil
		}
		pong, _ := EncodePongPayload(PongPayload{Nonce: pp.Nonce})
		return p.Send(CmdPong, pong)

	case CmdPong:
		return nil

	case CmdCatchupRequest:
		req, err := DecodeCatchupRequestPayload(msg.Payload)
		if err != nil {
			p.Ban.Add(now, BanScoreMalformedPayload)
			return nil
		}
		resp, err := h.OnCatchupRequest(p, *req)
		if err != nil {
			p.reject(CmdCatchupRequest, dag.ErrTransient, err.Error())
			return nil
		}
		if resp == nil {
			return nil
		}
		payload, err := EncodeCatchupChainPayload(*resp)
		if err != nil {
			return nil
		}
		return p.Send(CmdCatchupChain, payload)

	case CmdGetHashTree:
		req, err := DecodeGetHashTreePayload(msg.Payload)
		if err != nil {
			p.Ban.Add(now, BanScoreMalformedPayload)
			return nil
		}
		resp, err := h.OnGetHashTree(p, *req)
		if err != nil {
			p.reject(CmdGetHashTree, dag.ErrTransient, err.Error())
			return nil
		}
		if resp == nil {
			return nil
		}
		payload, err := EncodeHashTreeBatchPayload(*resp)
		if err != nil {
			return nil
		}
		return p.Send(CmdHashTreeBatch, payload)

	case CmdNewJoint:
		joint, err := DecodeNewJointPayload(msg.Payload)
		if err != nil {
			p.Ban.Add(now, BanScoreMalformedPayload)
			return nil
		}
		if err := h.OnNewJoint(p, *joint); err != nil {
			var derr *dag.Error
			if errors.As(err, &derr) && derr.Code == dag.ErrDoubleSpend {
				p.Ban.Add(now, BanScoreDoubleSpendOrFatal)
			} else {
				p.Ban.Add(now, BanScoreMalformedPayload)
			}
			if p.Ban.ShouldBan(now) {
				return fmt.Errorf("p2p: peer: invalid joint (banned): %w", err)
			}
		}
		return nil

	case CmdLightGetHistory:
		req, err := DecodeLightGetHistoryPayload(msg.Payload)
		if err != nil {
			p.Ban.Add(now, BanScoreMalformedPayload)
			return nil
		}
		resp, err := h.OnLightGetHistory(p, *req)
		if err != nil {
			if errors.Is(err, ErrHistoryTooLarge) {
				p.reject(CmdLightGetHistory, dag.ErrMalformed, "history too large")
			} else {
				p.reject(CmdLightGetHistory, dag.ErrTransient, err.Error())
			}
			return nil
		}
		payload, err := EncodeHistoryPayload(*resp)
		if err != nil {
			if errors.Is(err, ErrHistoryTooLarge) {
				p.reject(CmdLightGetHistory, dag.ErrMalformed, "history too large")
			}
			return nil
		}
		return p.Send(CmdHistoryPayload, payload)

	case CmdLightGetAAResponses:
		req, err := DecodeLightGetAAResponsesPayload(msg.Payload)
		if err != nil {
			p.Ban.Add(now, BanScoreMalformedPayload)
			return nil
		}
		resp, err := h.OnLightGetAAResponses(p, *req)
		if err != nil {
			p.reject(CmdLightGetAAResponses, dag.ErrTransient, err.Error())
			return nil
		}
		payload, err := EncodeAAResponsePayload(*resp)
		if err != nil {
			return nil
		}
		return p.Send(CmdAAResponsePayload, payload)

	case CmdReject:
		_, _ = DecodeRejectPayload(msg.Payload)
		return nil

	default:
		return nil
	}
}
