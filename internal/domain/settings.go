package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Well-known settings keys
const (
	SettingCurrentAge     = "current_age"
	SettingRetirementAge  = "retirement_age"
	accountTotalKeyPrefix = "ACC_TOTAL_"
)

// Default simulation parameters
const (
	DefaultCurrentAge    = 40
	DefaultRetirementAge = 60
)

// Settings is the flat key-value map persisted next to the assets
type Settings map[string]string

// AccountTotalKey returns the key under which the asserted total of an account is stored
func AccountTotalKey(account string) string {
	return accountTotalKeyPrefix + account
}

// Int returns the integer stored under key, or def when absent
func (s Settings) Int(key string, def int) int {
	raw, ok := s[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	return int(ParseInt(raw))
}

// CurrentAge is the user's age for the retirement simulation
func (s Settings) CurrentAge() int {
	return s.Int(SettingCurrentAge, DefaultCurrentAge)
}

// RetirementAge is the planned retirement age
func (s Settings) RetirementAge() int {
	return s.Int(SettingRetirementAge, DefaultRetirementAge)
}

// AccountTotal returns the user-asserted real total of a brokerage account
func (s Settings) AccountTotal(account string) (decimal.Decimal, bool) {
	raw, ok := s[AccountTotalKey(account)]
	if !ok {
		return decimal.Zero, false
	}
	return ParseNumeric(raw), true
}

// SetAccountTotal records the asserted total of an account
func (s Settings) SetAccountTotal(account string, total decimal.Decimal) {
	s[AccountTotalKey(account)] = total.String()
}

// SetInt stores an integer setting
func (s Settings) SetInt(key string, v int) {
	s[key] = strconv.Itoa(v)
}

// Clone copies the map
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
