package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	testfile "github.com/namada-utils/stakeaudit/internal/testutils/file"
	"github.com/namada-utils/stakeaudit/types"
)

const (
	addr1 = "tnam1qqqszqgpqyqszqgpqyqszqgpqyqszqgpqyr40qkp"
	addr2 = "tnam1qqpqyqszqgpqyqszqgpqyqszqgpqyqszqgafm3ew"
	addr3 = "tnam1qqpsxqcrqvpsxqcrqvpsxqcrqvpsxqcrqvva634y"
)

func TestLoadAddresses(t *testing.T) {
	path := testfile.CreateTempFileWithContent(t, "backers.txt", `# backers
`+addr1+`

  `+addr2+`
treasury
`)
	refs, err := LoadAddresses(path)
	require.NoError(t, err)
	require.Equal(t, []types.AddressRef{
		types.LiteralRef(addr1),
		types.LiteralRef(addr2),
		types.AliasRef("treasury"),
	}, refs)
}

func TestLoadAddresses_Errors(t *testing.T) {
	_, err := LoadAddresses("/no/such/file.txt")
	require.ErrorIs(t, err, types.ErrManifest)

	path := testfile.CreateTempFileWithContent(t, "bad.txt", addr1+"\n"+"tnam1qqqszqgpqyqszqgpqyqszqgpqyqszqgpqyr40qk1\n")
	_, err = LoadAddresses(path)
	require.ErrorIs(t, err, types.ErrManifest)
	require.ErrorIs(t, err, types.ErrParse)
	require.ErrorContains(t, err, "bad.txt:2")
}

func TestLoadCategorizedAccounts(t *testing.T) {
	path := testfile.CreateTempFileWithContent(t, "rnd.json", `[
  {"address": "`+addr1+`", "amount": 1000000, "category": "R&D", "name": "Foundation"},
  {"address": "`+addr2+`", "amount": "2500000", "category": "R&D", "name": " Foundation "},
  {"address": "`+addr3+`", "amount": 18446744073709551615, "category": "R&D", "name": "Labs"}
]`)
	accounts, err := LoadCategorizedAccounts(path, types.CategoryRnD)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	require.Equal(t, types.CategorizedAccount{
		Address:  types.MustParseAddress(addr1),
		Balance:  types.NewAmount(1_000_000),
		Category: types.CategoryRnD,
		Name:     "Foundation",
		Label:    "R&D",
	}, accounts[0])
	require.Equal(t, "Foundation", accounts[1].Name)
	require.Equal(t, types.NewAmount(2_500_000), accounts[1].Balance)
	require.Equal(t, "18446744073709551615", accounts[2].Balance.String())
}

func TestLoadCategorizedAccounts_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errStr  string
	}{
		{
			name:    "not json",
			content: `{"address": `,
			errStr:  "decoding",
		},
		{
			name:    "invalid address",
			content: `[{"address": "tnam1xyz", "amount": 1, "name": "x"}]`,
			errStr:  `record 0: field Address failed on "namada_address"`,
		},
		{
			name:    "missing name",
			content: `[{"address": "` + addr1 + `", "amount": 1}]`,
			errStr:  `record 0: field Name failed on "required"`,
		},
		{
			name:    "missing amount",
			content: `[{"address": "` + addr1 + `", "name": "x"}]`,
			errStr:  `field Amount failed on "required"`,
		},
		{
			name:    "fractional amount",
			content: `[{"address": "` + addr1 + `", "amount": 1, "name": "x"}, {"address": "` + addr2 + `", "amount": 1.5, "name": "y"}]`,
			errStr:  "record 1: field Amount",
		},
		{
			name:    "unknown field",
			content: `[{"address": "` + addr1 + `", "amount": 1, "name": "x", "balance": 2}]`,
			errStr:  "unknown field",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := testfile.CreateTempFileWithContent(t, "accounts.json", tc.content)
			_, err := LoadCategorizedAccounts(path, types.CategoryFutureAlloc)
			require.ErrorIs(t, err, types.ErrManifest)
			require.ErrorContains(t, err, tc.errStr)
		})
	}
}

func TestLoadTargets(t *testing.T) {
	path := testfile.CreateTempFileWithContent(t, "targets.csv", `address,amount
# first round
`+addr1+`,10
`+addr2+`, 20.5
grantee,0.000001
`)
	targets, err := LoadTargets(path, types.NativeDecimals)
	require.NoError(t, err)
	require.Equal(t, []TargetRecord{
		{Line: 3, Destination: types.LiteralRef(addr1), Amount: types.NativeWhole(10)},
		{Line: 4, Destination: types.LiteralRef(addr2), Amount: types.NewAmount(20_500_000)},
		{Line: 5, Destination: types.AliasRef("grantee"), Amount: types.NewAmount(1)},
	}, targets)
}

func TestLoadTargets_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errIs   error
		errStr  string
	}{
		{name: "zero amount", content: addr1 + ",10\n" + addr2 + ",0\n", errIs: types.ErrInvalidAmount, errStr: "targets.csv:2"},
		{name: "zero with decimals", content: addr1 + ",0.000\n", errIs: types.ErrInvalidAmount, errStr: "targets.csv:1"},
		{name: "too many decimals", content: addr1 + ",1.0000001\n", errIs: types.ErrParse, errStr: "field amount"},
		{name: "negative", content: addr1 + ",-1\n", errIs: types.ErrManifest, errStr: "field amount"},
		{name: "bad address", content: "tnam1abc,1\n", errIs: types.ErrParse, errStr: "field address"},
		{name: "wrong column count", content: addr1 + ",1,2\n", errIs: types.ErrManifest, errStr: "wrong number of fields"},
		{name: "empty", content: "address,amount\n", errIs: types.ErrManifest, errStr: "no targets"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := testfile.CreateTempFileWithContent(t, "targets.csv", tc.content)
			_, err := LoadTargets(path, types.NativeDecimals)
			require.ErrorIs(t, err, types.ErrManifest)
			require.ErrorIs(t, err, tc.errIs)
			require.ErrorContains(t, err, tc.errStr)
		})
	}
}
