package alertmsg

import (
	"math/big"
	"strings"
)

// formatUnits renders amount (an integer in the token's smallest unit) as a
// decimal string scaled down by decimals, trimming trailing fractional
// zeros and the decimal point itself when the value is a whole number.
// Mirrors utils.rs's format_units/format_ether_trimmed/format_token_amount.
func formatUnits(amount *big.Int, decimals uint8) string {
	if decimals == 0 {
		return amount.String()
	}

	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(abs, divisor, frac)

	fracStr := frac.String()
	if pad := int(decimals) - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")

	out := whole.String()
	if fracStr != "" {
		out += "." + fracStr
	}
	if neg {
		out = "-" + out
	}
	return out
}

// digitCount returns the number of base-10 digits in n (n >= 0), used to
// align the transaction-index column in the rendered message.
func digitCount(n int) int {
	if n == 0 {
		return 1
	}
	count := 0
	for n > 0 {
		count++
		n /= 10
	}
	return count
}

var markdownV2Reserved = []string{
	"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!",
}

// escapeMarkdownV2 escapes every character Telegram's MarkdownV2 parser
// treats as special, so token symbols/wallet names containing them render
// literally instead of breaking message formatting.
func escapeMarkdownV2(s string) string {
	var b strings.Builder
	for _, r := range s {
		c := string(r)
		for _, special := range markdownV2Reserved {
			if c == special {
				b.WriteByte('\\')
				break
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
