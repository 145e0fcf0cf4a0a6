package pnl

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/chainsentry/wallet-watcher/internal/chainmeta"
)

// BlockPnLEngine runs the per-block accounting pass: for every watched
// wallet it decides which transactions in the block touched it, charges
// gas fees for transactions it sent, folds in token and native-currency
// deltas (including, per wallet, one hop of forwarding to a direct
// recipient when IncludeRecipient is set), filters out shitcoin-airdrop
// noise, and — for a wallet whose builder address mined the block —
// attributes the block's builder reward and estimates a validator bribe
// from the block's final transaction. Mirrors processor.rs's
// process_block.
type BlockPnLEngine struct {
	ChainID uint64
}

// NewBlockPnLEngine builds an engine for chainID.
func NewBlockPnLEngine(chainID uint64) *BlockPnLEngine {
	return &BlockPnLEngine{ChainID: chainID}
}

// ProcessBlock computes one PnlReport per wallet in wallets that has
// anything to report. A wallet with no involved transactions and no
// builder reward is omitted from the returned map entirely — callers
// should treat a missing entry as "nothing to alert on" rather than look
// for an empty report. The map is keyed by each *WalletContext's own
// identity (not its address) because the same address can legitimately
// appear under more than one WalletContext, each routed to a different
// alert destination.
func (e *BlockPnLEngine) ProcessBlock(block *BlockInput, wallets []*WalletContext) (map[*WalletContext]*PnlReport, error) {
	if len(block.Receipts) != len(block.Traces) {
		return nil, wrapTrace("BlockPnLEngine.ProcessBlock",
			fmt.Errorf("receipt/trace count mismatch: %d receipts, %d traces", len(block.Receipts), len(block.Traces)))
	}

	extractor := NewTransferExtractor(e.ChainID)
	fullSheets := make([]BalanceChangeSheet, len(block.Receipts))
	for i, tr := range block.Traces {
		sheet, err := extractor.Extract(tr.Result)
		if err != nil {
			return nil, err
		}
		fullSheets[i] = sheet
	}

	universe := buildUniverse(wallets, block)
	filteredSheets := make([]BalanceChangeSheet, len(fullSheets))
	for i, sheet := range fullSheets {
		filteredSheets[i] = sheet.RetainAccounts(universe)
	}

	reports := make(map[*WalletContext]*PnlReport, len(wallets))
	for _, wc := range wallets {
		report, err := e.processWallet(block, fullSheets, filteredSheets, wc)
		if err != nil {
			return nil, fmt.Errorf("wallet %s: %w", wc.Name, err)
		}
		if report != nil {
			reports[wc] = report
		}
	}
	return reports, nil
}

// buildUniverse computes the pre-pass account set every per-tx sheet is
// filtered down to before any wallet-specific accounting happens: the
// union of every watched wallet's own involved addresses, plus — for a
// wallet with IncludeRecipient set — the direct recipient of any
// successful transaction it sent. Mirrors process_block's universe
// construction together with find_all_receipients.
func buildUniverse(wallets []*WalletContext, block *BlockInput) map[common.Address]struct{} {
	universe := make(map[common.Address]struct{})
	for _, wc := range wallets {
		for a := range wc.InvolvedWallets() {
			universe[a] = struct{}{}
		}
	}
	for _, receipt := range block.Receipts {
		if receipt.Reverted() || receipt.To == nil {
			continue
		}
		if anyWalletForwardsFrom(wallets, receipt.From) {
			universe[*receipt.To] = struct{}{}
		}
	}
	return universe
}

func anyWalletForwardsFrom(wallets []*WalletContext, addr common.Address) bool {
	for _, wc := range wallets {
		if wc.IncludeRecipient && wc.Owns(addr) {
			return true
		}
	}
	return false
}

// involvedTx is one transaction this wallet has decided belongs in its
// report, paired with the filtered (universe-restricted) sheet it was
// found in.
type involvedTx struct {
	pos      TxAndPosition
	receipt  *Receipt
	filtered BalanceChangeSheet
}

func (e *BlockPnLEngine) processWallet(block *BlockInput, fullSheets, filteredSheets []BalanceChangeSheet, wc *WalletContext) (*PnlReport, error) {
	isBuilder := e.ChainID == chainmeta.Mainnet && wc.Builder != nil &&
		block.Header != nil && block.Header.Miner == *wc.Builder

	var builderReward, validatorBribe Signed256
	if isBuilder {
		var err error
		builderReward, err = calculateBuilderReward(block.Header, block.Receipts)
		if err != nil {
			return nil, err
		}
		validatorBribe = findValidatorBribe(fullSheets)
	}

	var involved []involvedTx
	for i, receipt := range block.Receipts {
		filtered := filteredSheets[i]
		if !sheetTouches(filtered, wc.InvolvedWallets()) {
			continue
		}
		if isShitcoinAirdrop(fullSheets[i]) {
			continue
		}
		involved = append(involved, involvedTx{
			pos:      TxAndPosition{Hash: receipt.TxHash, Index: uint64(receipt.TransactionIndex)},
			receipt:  receipt,
			filtered: filtered,
		})
	}

	if len(involved) == 0 && (!isBuilder || builderReward.IsZero()) {
		return nil, nil
	}

	tokenChanges := make(map[common.Address]Signed256)
	totalFee := ZeroSigned256()

	for _, it := range involved {
		if wc.Owns(it.receipt.From) {
			fee, err := calculateTxFee(it.receipt, e.ChainID)
			if err != nil {
				return nil, err
			}
			next, err := totalFee.Add(fee)
			if err != nil {
				return nil, wrapOverflow("processWallet.fee", err)
			}
			totalFee = next
		}

		mergeSet := make(map[common.Address]struct{}, len(wc.involvedWallets)+1)
		for a := range wc.InvolvedWallets() {
			mergeSet[a] = struct{}{}
		}
		if it.receipt.From == wc.Address && it.receipt.To != nil {
			mergeSet[*it.receipt.To] = struct{}{}
		}

		merged, err := mergeAccounts(it.filtered, mergeSet)
		if err != nil {
			return nil, err
		}
		for token, delta := range merged {
			cur := tokenChanges[token]
			next, err := cur.Add(delta)
			if err != nil {
				return nil, wrapOverflow("processWallet.merge", err)
			}
			tokenChanges[token] = next
		}
	}

	tokenChanges = pruneZeroTokenChanges(tokenChanges)

	etherPnL, err := TokenDelta(tokenChanges).ExtractEther(e.ChainID)
	if err != nil {
		return nil, err
	}
	etherPnL, err = etherPnL.Sub(totalFee)
	if err != nil {
		return nil, wrapOverflow("processWallet.fee_sub", err)
	}
	if isBuilder {
		etherPnL, err = etherPnL.Add(builderReward)
		if err != nil {
			return nil, wrapOverflow("processWallet.reward_add", err)
		}
	}

	txs := make([]TxAndPosition, 0, len(involved))
	for _, it := range involved {
		txs = append(txs, it.pos)
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Index < txs[j].Index })

	report := &PnlReport{
		Txs:          txs,
		NativePnL:    etherPnL,
		TokenChanges: tokenChanges,
	}
	if isBuilder && !builderReward.IsZero() {
		r := builderReward
		report.BuilderReward = &r
	}
	if isBuilder && !validatorBribe.IsZero() {
		b := validatorBribe
		report.ValidatorBribe = &b
	}
	return report, nil
}

func sheetTouches(sheet BalanceChangeSheet, addrs map[common.Address]struct{}) bool {
	for account := range sheet {
		if _, ok := addrs[account]; ok {
			return true
		}
	}
	return false
}

// mergeAccounts folds every account in addrs that appears in filtered into
// one combined TokenDelta, summing token by token. Mirrors
// processor.rs's merge_accounts.
func mergeAccounts(filtered BalanceChangeSheet, addrs map[common.Address]struct{}) (TokenDelta, error) {
	merged := make(TokenDelta)
	for a := range addrs {
		td, ok := filtered[a]
		if !ok {
			continue
		}
		for token, delta := range td {
			cur, ok := merged[token]
			if !ok {
				merged[token] = delta
				continue
			}
			next, err := cur.Add(delta)
			if err != nil {
				return nil, wrapOverflow("mergeAccounts", err)
			}
			merged[token] = next
		}
	}
	return merged, nil
}

func pruneZeroTokenChanges(m map[common.Address]Signed256) map[common.Address]Signed256 {
	for token, delta := range m {
		if delta.IsZero() {
			delete(m, token)
		}
	}
	return m
}

// isShitcoinAirdrop matches the spam-token heuristic: a single token whose
// deltas span three or more accounts (the sender included), exactly one of
// them negative, the signature of an unsolicited airdrop rather than a real
// transfer the wallet participated in.
func isShitcoinAirdrop(sheet BalanceChangeSheet) bool {
	if len(sheet) < 3 {
		return false
	}
	var token common.Address
	tokenSet := false
	negatives := 0
	for _, td := range sheet {
		for tok, delta := range td {
			if !tokenSet {
				token = tok
				tokenSet = true
			} else if tok != token {
				return false
			}
			if delta.IsNegative() {
				negatives++
			}
		}
	}
	return tokenSet && negatives == 1
}

// calculateTxFee returns gasUsed * effectiveGasPrice, plus the Optimism-
// family L1 data fee when present, as a positive Signed256 cost.
func calculateTxFee(receipt *Receipt, chainID uint64) (Signed256, error) {
	if receipt.EffectiveGasPrice == nil {
		return ZeroSigned256(), nil
	}
	gasUsed := new(uint256.Int).SetUint64(uint64(receipt.GasUsed))
	price, overflow := uint256.FromBig(receipt.EffectiveGasPrice.ToInt())
	if overflow {
		return Signed256{}, wrapOverflow("calculateTxFee", fmt.Errorf("effectiveGasPrice out of range"))
	}
	fee := new(uint256.Int).Mul(gasUsed, price)
	total := SignedFromUnsigned256(fee)

	if chainmeta.IsOptimismFamily(chainID) && receipt.ExtraL1Fee != nil {
		l1Fee, overflow := uint256.FromBig(receipt.ExtraL1Fee.ToInt())
		if overflow {
			return Signed256{}, wrapOverflow("calculateTxFee", fmt.Errorf("l1Fee out of range"))
		}
		next, err := total.Add(SignedFromUnsigned256(l1Fee))
		if err != nil {
			return Signed256{}, wrapOverflow("calculateTxFee", err)
		}
		total = next
	}
	return total, nil
}

// calculateBuilderReward sums, over every receipt in the block (not just
// ones any watched wallet is involved in), (effectiveGasPrice - baseFee) *
// gasUsed — the total priority fee the block's builder collected. Mirrors
// processor.rs's calculate_builder_reward.
func calculateBuilderReward(header *Header, receipts []*Receipt) (Signed256, error) {
	baseFee := ZeroSigned256()
	if header != nil && header.BaseFeeWei != nil {
		v, overflow := uint256.FromBig(header.BaseFeeWei.ToInt())
		if overflow {
			return Signed256{}, wrapOverflow("calculateBuilderReward", fmt.Errorf("baseFeePerGas out of range"))
		}
		baseFee = SignedFromUnsigned256(v)
	}

	total := ZeroSigned256()
	for _, r := range receipts {
		if r.EffectiveGasPrice == nil {
			continue
		}
		priceV, overflow := uint256.FromBig(r.EffectiveGasPrice.ToInt())
		if overflow {
			return Signed256{}, wrapOverflow("calculateBuilderReward", fmt.Errorf("effectiveGasPrice out of range"))
		}
		price := SignedFromUnsigned256(priceV)

		tip, err := price.Sub(baseFee)
		if err != nil {
			return Signed256{}, wrapOverflow("calculateBuilderReward", err)
		}
		gasUsed := NewSigned256(new(big.Int).SetUint64(uint64(r.GasUsed)))
		contribution, err := tip.Mul(gasUsed)
		if err != nil {
			return Signed256{}, wrapOverflow("calculateBuilderReward", err)
		}
		total, err = total.Add(contribution)
		if err != nil {
			return Signed256{}, wrapOverflow("calculateBuilderReward", err)
		}
	}
	return total, nil
}

// findValidatorBribe estimates a validator bribe as the largest positive
// native-currency delta paid to any account in the block's final
// transaction, with no exclusion of the block's miner — a heuristic for
// PBS/Flashbots-bundle-style payments, not a proof of one. Mirrors
// processor.rs's find_validator_bribe.
func findValidatorBribe(fullSheets []BalanceChangeSheet) Signed256 {
	if len(fullSheets) == 0 {
		return ZeroSigned256()
	}
	last := fullSheets[len(fullSheets)-1]

	var zero common.Address
	best := ZeroSigned256()
	found := false
	for _, td := range last {
		delta, ok := td[zero]
		if !ok || !delta.IsPositive() {
			continue
		}
		if !found || delta.Big().Cmp(best.Big()) > 0 {
			best = delta
			found = true
		}
	}
	return best
}
