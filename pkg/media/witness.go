package media

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-script-templates/template/inscription"
	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/arc20-me/realm-stack/pkg/document"
	"github.com/arc20-me/realm-stack/pkg/electrumx"
)

// ErrInvalidID is returned when an id does not carry a transaction hash.
var ErrInvalidID = errors.New("invalid atomical id")

// ErrTxMismatch is returned when a mirror answers with a different transaction than requested.
var ErrTxMismatch = errors.New("transaction does not match requested id")

// envelopeKeywords mark protocol pushes that are not part of the payload.
var envelopeKeywords = []string{"atom", "dat", "mod", "nft", "ft", "evt"}

// TxID returns the transaction hash an atomical or inscription id was revealed in.
// A bare 64-character id is the hash itself; otherwise the hash must be followed by 'i'.
func TxID(id string) (string, error) {
	txid := id
	if len(id) != 64 {
		if strings.IndexByte(id, 'i') != 64 {
			return "", fmt.Errorf("%w: %s", ErrInvalidID, id)
		}
		txid = id[:64]
	}
	if _, err := chainhash.NewHashFromHex(txid); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return txid, nil
}

// fetchTx loads and decodes a raw transaction through the pinned mirror.
func (r *Resolver) fetchTx(ctx context.Context, id string) (*wire.MsgTx, error) {
	txid, err := TxID(id)
	if err != nil {
		return nil, err
	}

	n, err := r.indexer.Query(ctx, r.methods.Transaction, []any{txid}, electrumx.WithMirror(r.txMirror))
	if err != nil {
		return nil, err
	}
	if !electrumx.Succeeded(n) {
		return nil, errors.New("indexer reported failure for transaction")
	}
	rawHex, ok := document.String(document.Lookup(n, "response"))
	if !ok {
		return nil, fmt.Errorf("%w: transaction response is not a hex string", electrumx.ErrMalformed)
	}
	tx, err := DecodeTx(rawHex)
	if err != nil {
		return nil, err
	}
	if got := btcutil.NewTx(tx).Hash().String(); !strings.EqualFold(got, txid) {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrTxMismatch, got, txid)
	}
	return tx, nil
}

// DecodeTx parses a hex-encoded transaction, including segwit witness data.
func DecodeTx(rawHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, fmt.Errorf("decode tx hex: %w", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	return tx, nil
}

func (r *Resolver) resolveAtomWitness(ctx context.Context, id string) (*Resolved, error) {
	tx, err := r.fetchTx(ctx, id)
	if err != nil {
		return nil, err
	}
	if res := AtomFromTx(tx); res != nil {
		return res, nil
	}
	return nil, ErrNotFound
}

func (r *Resolver) resolveOrdWitness(ctx context.Context, id string) (*Resolved, error) {
	tx, err := r.fetchTx(ctx, id)
	if err != nil {
		return nil, err
	}
	if res := OrdFromTx(tx); res != nil {
		return res, nil
	}
	return nil, ErrNotFound
}

// AtomFromTx returns the first byte payload carried by an atomicals envelope in any witness item.
func AtomFromTx(tx *wire.MsgTx) *Resolved {
	for _, in := range tx.TxIn {
		for _, item := range in.Witness {
			payload := EnvelopePayload(item)
			if len(payload) == 0 {
				continue
			}
			n, err := document.DecodeCBOR(payload)
			if err != nil {
				continue
			}
			if p := document.FindBytes(n); p != nil {
				return &Resolved{
					Extension:   p.Extension,
					ContentType: p.ContentType,
					Bytes:       p.Data,
				}
			}
		}
	}
	return nil
}

// EnvelopePayload concatenates the pushes inside IF...ENDIF spans of a witness script,
// skipping pushes whose first four bytes contain a protocol keyword.
// It returns nil when the item does not parse as a script.
func EnvelopePayload(item []byte) []byte {
	scr := script.NewFromBytes(item)
	var (
		out        []byte
		collecting bool
	)
	pos := 0
	for pos < len(*scr) {
		op, err := scr.ReadOp(&pos)
		if err != nil {
			return nil
		}
		switch {
		case op.Op == script.OpIF:
			collecting = true
		case op.Op == script.OpENDIF:
			collecting = false
		case collecting && op.Op <= script.OpPUSHDATA4 && len(op.Data) > 0:
			if isKeyword(op.Data) {
				continue
			}
			out = append(out, op.Data...)
		}
	}
	return out
}

func isKeyword(data []byte) bool {
	head := data
	if len(head) > 4 {
		head = head[:4]
	}
	s := string(head)
	for _, kw := range envelopeKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// OrdFromTx returns the first inscription envelope found in any witness item.
func OrdFromTx(tx *wire.MsgTx) *Resolved {
	for _, in := range tx.TxIn {
		for _, item := range in.Witness {
			scr := script.NewFromBytes(item)
			insc := inscription.Decode(scr)
			if insc == nil || insc.File.Content == nil {
				continue
			}
			return &Resolved{
				ContentType: insc.File.Type,
				Bytes:       insc.File.Content,
			}
		}
	}
	return nil
}
