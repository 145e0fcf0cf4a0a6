// Package alertmsg renders a PnlReport into the Telegram MarkdownV2 message
// text the watcher sends. Ported in spirit from message.rs's
// MessageGenerator::generate.
package alertmsg

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/chainsentry/wallet-watcher/internal/chainmeta"
	"github.com/chainsentry/wallet-watcher/internal/erc20meta"
	"github.com/chainsentry/wallet-watcher/pnl"
)

// TokenInfoLookup resolves a token's display symbol/decimals. Satisfied by
// (*erc20meta.Cache).Lookup bound to a context, which never returns an
// error itself — a lookup failure is already folded into a fallback Info.
type TokenInfoLookup func(common.Address) erc20meta.Info

// Generate renders report for wallet wc on chainID/blockNumber into
// Telegram MarkdownV2 text. Callers only invoke this for wallets present
// in BlockPnLEngine.ProcessBlock's result map, so report always has
// something worth alerting on.
func Generate(chainID uint64, blockNumber uint64, wc *pnl.WalletContext, report *pnl.PnlReport, tokenInfo TokenInfoLookup) (string, error) {
	chCap, ok := chainmeta.Lookup(chainID)
	if !ok {
		return "", fmt.Errorf("alertmsg.Generate: unknown chain %d", chainID)
	}

	var b strings.Builder

	builderTag := ""
	if report.BuilderReward != nil {
		builderTag = " \\[B\\]"
	}
	addrLink := escapeMarkdownV2(wc.Address.Hex())
	if url := chainmeta.ExplorerAddressURL(chainID, wc.Address); url != "" {
		addrLink = fmt.Sprintf("[%s](%s)", escapeMarkdownV2(wc.Address.Hex()), url)
	}
	blockLink := fmt.Sprintf("%d", blockNumber)
	if url := chainmeta.ExplorerBlockURL(chainID, blockNumber); url != "" {
		blockLink = fmt.Sprintf("[%d](%s)", blockNumber, url)
	}

	fmt.Fprintf(&b, "*%s*%s on *%s* — block %s\n", escapeMarkdownV2(wc.Name), builderTag, escapeMarkdownV2(chCap.Name), blockLink)
	fmt.Fprintf(&b, "%s\n\n", addrLink)

	nativeAbs, nativeSign := report.NativePnL.AbsAndSign()
	fmt.Fprintf(&b, "PnL: `%s%s %s`\n", nativeSign, formatUnits(nativeAbs, 18), escapeMarkdownV2(chCap.NativeSymbol))

	if len(report.TokenChanges) > 0 {
		b.WriteString("\nToken changes:\n")
		for token, delta := range report.TokenChanges {
			info := tokenInfo(token)
			abs, sign := delta.AbsAndSign()
			tokenLink := escapeMarkdownV2(info.Symbol)
			if url := chainmeta.ExplorerAddressURL(chainID, token); url != "" {
				tokenLink = fmt.Sprintf("[%s](%s)", escapeMarkdownV2(info.Symbol), url)
			}
			fmt.Fprintf(&b, "  `%s%s` %s\n", sign, formatUnits(abs, info.Decimals), tokenLink)
		}
	}

	if report.ValidatorBribe != nil {
		abs, _ := report.ValidatorBribe.AbsAndSign()
		fmt.Fprintf(&b, "\nValidator bribe \\(estimated\\): `%s %s`\n", formatUnits(abs, 18), escapeMarkdownV2(chCap.NativeSymbol))
	}
	if report.BuilderReward != nil {
		abs, _ := report.BuilderReward.AbsAndSign()
		fmt.Fprintf(&b, "Builder reward: `%s %s`\n", formatUnits(abs, 18), escapeMarkdownV2(chCap.NativeSymbol))
	}

	if len(report.Txs) > 0 {
		b.WriteString("\nTransactions:\n")
		width := digitCount(len(report.Txs))
		for i, t := range report.Txs {
			idx := fmt.Sprintf("%*d", width, i+1)
			hash := t.Hash
			txLink := escapeMarkdownV2(hash.Hex())
			if url := chainmeta.ExplorerTxURL(chainID, hash); url != "" {
				txLink = fmt.Sprintf("[%s](%s)", escapeMarkdownV2(shortHash(hash.Hex())), url)
			}
			line := fmt.Sprintf("  %s\\. %s", idx, txLink)
			if phalcon := chainmeta.PhalconTxURL(chainID, hash); phalcon != "" {
				line += fmt.Sprintf(" \\| [explain](%s)", phalcon)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	return b.String(), nil
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-6:]
}
