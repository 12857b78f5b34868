// Package contracts binds a chain client to the two fixed-address remote
// contracts: the marketplace and the ERC-20 payment token. Binding is a pure
// factory; handles capture the client by reference and must be rebuilt
// whenever the active client changes.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// MarketplaceABI is the fixed method schema of the marketplace contract.
// Items are keyed by a client-generated string id; prices are uint256 in the
// token's base units.
const MarketplaceABI = `[
  {"type":"function","name":"addNewItem","stateMutability":"nonpayable","inputs":[
    {"name":"id","type":"string"},
    {"name":"name","type":"string"},
    {"name":"description","type":"string"},
    {"name":"image","type":"string"},
    {"name":"location","type":"string"},
    {"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"buyItems","stateMutability":"nonpayable","inputs":[
    {"name":"itemId","type":"string"}],"outputs":[]},
  {"type":"function","name":"relistItem","stateMutability":"nonpayable","inputs":[
    {"name":"itemId","type":"string"},
    {"name":"location","type":"string"},
    {"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"unlistItem","stateMutability":"nonpayable","inputs":[
    {"name":"itemId","type":"string"}],"outputs":[]},
  {"type":"function","name":"getUserItems","stateMutability":"view","inputs":[
    {"name":"owner","type":"address"}],"outputs":[
    {"name":"","type":"string[]"}]},
  {"type":"function","name":"getItemFromID","stateMutability":"view","inputs":[
    {"name":"itemId","type":"string"}],"outputs":[
    {"name":"","type":"tuple","components":[
      {"name":"id","type":"string"},
      {"name":"owner","type":"address"},
      {"name":"name","type":"string"},
      {"name":"description","type":"string"},
      {"name":"image","type":"string"},
      {"name":"location","type":"string"},
      {"name":"price","type":"uint256"},
      {"name":"isListed","type":"bool"},
      {"name":"history","type":"tuple[]","components":[
        {"name":"id","type":"string"},
        {"name":"txType","type":"string"},
        {"name":"from","type":"address"},
        {"name":"price","type":"uint256"},
        {"name":"createdAt","type":"uint256"}]}]}]},
  {"type":"function","name":"getItemCounts","stateMutability":"view","inputs":[],"outputs":[
    {"name":"","type":"uint256"}]},
  {"type":"function","name":"getItemFromCountMap","stateMutability":"view","inputs":[
    {"name":"index","type":"uint256"}],"outputs":[
    {"name":"","type":"tuple","components":[
      {"name":"id","type":"string"},
      {"name":"owner","type":"address"},
      {"name":"name","type":"string"},
      {"name":"description","type":"string"},
      {"name":"image","type":"string"},
      {"name":"location","type":"string"},
      {"name":"price","type":"uint256"},
      {"name":"isListed","type":"bool"},
      {"name":"history","type":"tuple[]","components":[
        {"name":"id","type":"string"},
        {"name":"txType","type":"string"},
        {"name":"from","type":"address"},
        {"name":"price","type":"uint256"},
        {"name":"createdAt","type":"uint256"}]}]}]}
]`

// TokenABI is the ERC-20 subset the client uses.
const TokenABI = `[
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[
    {"name":"spender","type":"address"},
    {"name":"amount","type":"uint256"}],"outputs":[
    {"name":"","type":"bool"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[
    {"name":"owner","type":"address"},
    {"name":"spender","type":"address"}],"outputs":[
    {"name":"","type":"uint256"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[
    {"name":"owner","type":"address"}],"outputs":[
    {"name":"","type":"uint256"}]}
]`

// Parsed once at startup; the schemas are compile-time constants.
var (
	marketplaceABI = mustParseABI(MarketplaceABI)
	tokenABI       = mustParseABI(TokenABI)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
