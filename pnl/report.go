package pnl

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// TxAndPosition identifies one transaction by its hash and its index within
// the block. It (de)serializes to YAML as the single string "hash:index",
// matching the Rust implementation's custom serde format.
type TxAndPosition struct {
	Hash  common.Hash
	Index uint64
}

func (t TxAndPosition) String() string {
	return fmt.Sprintf("%s:%d", t.Hash.Hex(), t.Index)
}

func (t TxAndPosition) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

func (t *TxAndPosition) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return fmt.Errorf("TxAndPosition: malformed %q, want hash:index", s)
	}
	idx, err := strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil {
		return fmt.Errorf("TxAndPosition: bad index in %q: %w", s, err)
	}
	t.Hash = common.HexToHash(s[:i])
	t.Index = idx
	return nil
}

// MarshalYAML renders a Signed256 as its decimal string.
func (s Signed256) MarshalYAML() (interface{}, error) {
	return s.v.String(), nil
}

func (s *Signed256) UnmarshalYAML(node *yaml.Node) error {
	var str string
	if err := node.Decode(&str); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(str, 10)
	if !ok {
		return fmt.Errorf("Signed256: invalid decimal %q", str)
	}
	s.v = v
	return nil
}

// PnlReport is the final, per-wallet, per-block accounting result: the
// involved transactions (sorted by index), the realized native-currency
// PnL, optional builder-reward/validator-bribe figures, and the non-native
// token deltas. Immutable once built by BlockPnLEngine. A wallet with
// nothing to report is simply absent from BlockPnLEngine.ProcessBlock's
// result map rather than represented by an empty PnlReport.
type PnlReport struct {
	Txs            []TxAndPosition               `yaml:"txs"`
	NativePnL      Signed256                     `yaml:"native_pnl"`
	BuilderReward  *Signed256                    `yaml:"builder_reward,omitempty"`
	ValidatorBribe *Signed256                    `yaml:"validator_bribe,omitempty"`
	TokenChanges   map[common.Address]Signed256  `yaml:"token_changes"`
}
