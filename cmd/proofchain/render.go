package main

import (
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/ldelacroix/proofchain/ledger"
)

func renderChain(chain []ledger.Block) {
	rows := pterm.TableData{
		{"Index", "Timestamp", "Data", "Nonce", "Hash", "PrevHash", "Validity"},
	}
	for _, b := range chain {
		rows = append(rows, []string{
			strconv.FormatUint(b.Index, 10),
			time.UnixMilli(b.Timestamp).Format(time.DateTime),
			b.Data,
			strconv.FormatUint(b.Nonce, 10),
			shortHash(b.Hash),
			shortHash(b.PrevHash),
			validityLabel(b.Validity),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func validityLabel(v ledger.Validity) string {
	switch v {
	case ledger.ValidityValid:
		return pterm.LightGreen(v.String())
	case ledger.ValidityInvalid:
		return pterm.LightRed(v.String())
	default:
		return pterm.FgGray.Sprint(v.String())
	}
}

func shortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}
