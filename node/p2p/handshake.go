package p2p

import (
	"fmt"
	"net"
	"time"

	"witnessdag.dev/core/dag"
)

const HandshakeTimeout = 10 * time.Second

// HandshakeResult is what a completed handshake establishes about the peer
// on the other end of conn.
type HandshakeResult struct {
	PeerVersion VersionPayload
	Ready       bool
}

// Handshake performs the minimum version/verack exchange: send version,
// receive and validate the peer's version (genesis unit must match), send
// verack, wait for the peer's verack. Grounded on the teacher's
// node/p2p/handshake.go state flow (INIT -> GOT_VERSION -> READY), adapted
// from a chain-id comparison to a genesis-unit comparison.
func Handshake(conn net.Conn, hp dag.HashProvider, magic uint32, ourVersion VersionPayload, genesisUnit string) (*HandshakeResult, error) {
	if conn == nil {
		return nil, fmt.Errorf("p2p: handshake: nil conn")
	}

	ourVersion.ProtocolVersion = ProtocolVersionV1
	ourVersion.GenesisUnit = genesisUnit

	payload, err := EncodeVersionPayload(ourVersion)
	if err != nil {
		return nil, err
	}
	if err := WriteMessage(conn, hp, magic, CmdVersion, payload); err != nil {
		return nil, err
	}

	_ = conn.SetReadDeadline(time.Now().Add(HandshakeTimeout))

	var peerVersion *VersionPayload
	for peerVersion == nil {
		msg, rerr := ReadMessage(conn, hp, magic)
		if rerr != nil {
			if !rerr.Disconnect {
				continue
			}
			return nil, rerr
		}
		switch msg.Command {
		case CmdVersion:
			v, err := DecodeVersionPayload(msg.Payload)
			if err != nil {
				return nil, err
			}
			if v.GenesisUnit != genesisUnit {
				rp, _ := EncodeRejectPayload(RejectPayload{
					Message: CmdVersion,
					Code:    dag.ErrMalformed,
					Reason:  "genesis_unit mismatch",
				})
				_ = WriteMessage(conn, hp, magic, CmdReject, rp)
				return nil, fmt.Errorf("p2p: handshake: genesis_unit mismatch")
			}
			if v.ProtocolVersion != ProtocolVersionV1 {
				return nil, fmt.Errorf("p2p: handshake: unsupported protocol_version")
			}
			peerVersion = v
		case CmdReject:
			rp, err := DecodeRejectPayload(msg.Payload)
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("p2p: handshake: reject(%s) code=%s reason=%q", rp.Message, rp.Code, rp.Reason)
		case CmdVerack:
			continue // early verack, ignore
		default:
			continue
		}
	}

	if err := WriteMessage(conn, hp, magic, CmdVerack, nil); err != nil {
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(HandshakeTimeout))

	for {
		msg, rerr := ReadMessage(conn, hp, magic)
		if rerr != nil {
			if !rerr.Disconnect {
				continue
			}
			return nil, rerr
		}
		switch msg.Command {
		case CmdVerack:
			if len(msg.Payload) != 0 {
				return nil, fmt.Errorf("p2p: handshake: verack payload must be empty")
			}
			_ = conn.SetReadDeadline(time.Time{})
			return &HandshakeResult{PeerVersion: *peerVersion, Ready: true}, nil
		case CmdVersion:
			return nil, fmt.Errorf("p2p: handshake: duplicate version")
		case CmdReject:
			rp, err := DecodeRejectPayload(msg.Payload)
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("p2p: handshake: reject(%s) code=%s reason=%q", rp.Message, rp.Code, rp.Reason)
		default:
			continue
		}
	}
}
