/*
Package manifest loads the input files of the audit and disbursement
commands: address lists, categorized genesis accounts and disbursement
targets. Every error wraps types.ErrManifest and names the file and the
line or record at fault.
*/
package manifest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/namada-utils/stakeaudit/types"
)

/*
LoadAddresses reads address list, one address or wallet alias per line.
Empty lines and lines starting with '#' are ignored.
*/
func LoadAddresses(path string) ([]types.AddressRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrManifest, err)
	}
	defer f.Close()

	var refs []types.AddressRef
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		ref, err := types.NewAddressRef(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %w", types.ErrManifest, path, line, err)
		}
		if ref.Kind == types.RefLiteral {
			if _, err := types.ParseAddress(ref.Value); err != nil {
				return nil, fmt.Errorf("%w: %s:%d: %w", types.ErrManifest, path, line, err)
			}
		}
		refs = append(refs, ref)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", types.ErrManifest, path, err)
	}
	return refs, nil
}

type accountRecord struct {
	Address  string      `json:"address" validate:"required,namada_address"`
	Amount   json.Number `json:"amount" validate:"required,numeric"`
	Category string      `json:"category"`
	Name     string      `json:"name" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("namada_address", func(fl validator.FieldLevel) bool {
		_, err := types.ParseAddress(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

/*
LoadCategorizedAccounts reads JSON array of genesis accounts:

	[{"address": "tnam1...", "amount": 1000000, "category": "R&D", "name": "Foundation"}]

Amounts are native micro units. The accounts are assigned to "category", the
category field of the records is kept as the label of the account.
*/
func LoadCategorizedAccounts(path string, category types.Category) ([]types.CategorizedAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrManifest, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	var records []accountRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", types.ErrManifest, path, err)
	}

	accounts := make([]types.CategorizedAccount, len(records))
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				e := verrs[0]
				return nil, fmt.Errorf("%w: %s: record %d: field %s failed on %q", types.ErrManifest, path, i, e.Field(), e.Tag())
			}
			return nil, fmt.Errorf("%w: %s: record %d: %w", types.ErrManifest, path, i, err)
		}
		amount, err := types.ParseAmount(rec.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: record %d: field Amount: %w", types.ErrManifest, path, i, err)
		}
		accounts[i] = types.CategorizedAccount{
			Address:  types.MustParseAddress(rec.Address),
			Balance:  amount,
			Category: category,
			Name:     strings.TrimSpace(rec.Name),
			Label:    rec.Category,
		}
	}
	return accounts, nil
}

// TargetRecord is a disbursement target as given in the targets file, the
// destination may be a wallet alias.
type TargetRecord struct {
	Line        int
	Destination types.AddressRef
	Amount      types.Amount
}

/*
LoadTargets reads CSV of disbursement targets, "address,amount" per line
with the amount in token denomination ("decimals" fractional digits). Header
line "address,amount" is optional, '#' starts a comment line. Amount zero is
rejected with types.ErrInvalidAmount.
*/
func LoadTargets(path string, decimals uint32) ([]TargetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrManifest, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true

	var targets []TargetRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", types.ErrManifest, path, err)
		}
		line, _ := r.FieldPos(0)
		addr, amount := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if len(targets) == 0 && strings.EqualFold(addr, "address") && strings.EqualFold(amount, "amount") {
			continue
		}

		ref, err := types.NewAddressRef(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: field address: %w", types.ErrManifest, path, line, err)
		}
		if ref.Kind == types.RefLiteral {
			if _, err := types.ParseAddress(ref.Value); err != nil {
				return nil, fmt.Errorf("%w: %s:%d: field address: %w", types.ErrManifest, path, line, err)
			}
		}
		a, err := types.ParseDenominated(amount, decimals)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: field amount: %w", types.ErrManifest, path, line, err)
		}
		if a.IsZero() {
			return nil, fmt.Errorf("%s:%d: %w: amount must be positive", path, line, types.ErrInvalidAmount)
		}
		targets = append(targets, TargetRecord{Line: line, Destination: ref, Amount: a})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s: no targets", types.ErrManifest, path)
	}
	return targets, nil
}
