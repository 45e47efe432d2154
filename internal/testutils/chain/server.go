package testchain

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"

	"github.com/namada-utils/stakeaudit/chain"
	"github.com/namada-utils/stakeaudit/types"
)

/*
NewServer starts REST server serving the chain query API backed by "c".
The server is closed when the test ends.
*/
func NewServer(t testing.TB, c *Chain) *httptest.Server {
	s := httptest.NewServer(NewHandler(c))
	t.Cleanup(s.Close)
	return s
}

func NewHandler(c *Chain) http.Handler {
	api := &restAPI{chain: c}
	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/"+chain.EpochPath, api.epochFunc).Methods(http.MethodGet)
	r.HandleFunc("/"+chain.BondsPath+"/{source}", api.bondsFunc).Methods(http.MethodGet)
	r.HandleFunc("/"+chain.TotalStakedPath, api.totalStakedFunc).Methods(http.MethodGet)
	r.HandleFunc("/"+chain.BalancePath+"/{token}/{owner}", api.balanceFunc).Methods(http.MethodGet)
	r.HandleFunc("/"+chain.TotalSupplyPath+"/{token}", api.totalSupplyFunc).Methods(http.MethodGet)
	r.HandleFunc("/"+chain.TransfersPath, api.transfersFunc).Methods(http.MethodPost)
	r.HandleFunc("/"+chain.LastBlockPath, api.lastBlockFunc).Methods(http.MethodGet)
	r.HandleFunc("/"+chain.RatesPath, api.ratesFunc).Methods(http.MethodGet)
	r.HandleFunc("/"+chain.RewardsPath+"/{source}/{validator}", api.rewardsFunc).Methods(http.MethodGet)
	r.HandleFunc("/"+chain.ValidatorsPath+"/"+chain.ConsensusSegment, api.consensusValidatorsFunc).Methods(http.MethodGet)
	r.HandleFunc("/"+chain.ValidatorsPath+"/{validator}/"+chain.MetadataSegment, api.metadataFunc).Methods(http.MethodGet)
	return r
}

type restAPI struct {
	chain *Chain
}

func (a *restAPI) epochFunc(w http.ResponseWriter, r *http.Request) {
	epoch, err := a.chain.QueryEpoch(r.Context())
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeResponse(w, &chain.EpochResponse{Epoch: epoch})
}

func (a *restAPI) bondsFunc(w http.ResponseWriter, r *http.Request) {
	source, err := types.ParseAddress(mux.Vars(r)["source"])
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	epoch, err := parseEpoch(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	bd, err := a.chain.GetBondDetail(r.Context(), source, epoch)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeResponse(w, chain.NewBondsResponse(bd))
}

func (a *restAPI) totalStakedFunc(w http.ResponseWriter, r *http.Request) {
	epoch, err := parseEpoch(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	amount, err := a.chain.GetTotalStaked(r.Context(), epoch)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeResponse(w, &chain.AmountResponse{Amount: amount})
}

func (a *restAPI) balanceFunc(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	token, err := types.ParseAddress(vars["token"])
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	owner, err := types.ParseAddress(vars["owner"])
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	amount, err := a.chain.GetTokenBalance(r.Context(), token, owner)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeResponse(w, &chain.AmountResponse{Amount: amount})
}

func (a *restAPI) totalSupplyFunc(w http.ResponseWriter, r *http.Request) {
	token, err := types.ParseAddress(mux.Vars(r)["token"])
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	amount, err := a.chain.GetTotalSupply(r.Context(), token)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeResponse(w, &chain.AmountResponse{Amount: amount})
}

func (a *restAPI) lastBlockFunc(w http.ResponseWriter, r *http.Request) {
	b, err := a.chain.QueryLastBlock(r.Context())
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}
	writeResponse(w, b)
}

func (a *restAPI) ratesFunc(w http.ResponseWriter, r *http.Request) {
	rates, err := a.chain.GetRewardsRates(r.Context())
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}
	writeResponse(w, rates)
}

func (a *restAPI) rewardsFunc(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	source, err := types.ParseAddress(vars["source"])
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	validator, err := types.ParseAddress(vars["validator"])
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	amount, err := a.chain.GetRewards(r.Context(), source, validator)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeResponse(w, &chain.AmountResponse{Amount: amount})
}

func (a *restAPI) consensusValidatorsFunc(w http.ResponseWriter, r *http.Request) {
	epoch, err := parseEpoch(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	vals, err := a.chain.GetConsensusValidators(r.Context(), epoch)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeResponse(w, &chain.ValidatorsResponse{Validators: vals})
}

func (a *restAPI) metadataFunc(w http.ResponseWriter, r *http.Request) {
	validator, err := types.ParseAddress(mux.Vars(r)["validator"])
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	epoch, err := parseEpoch(r)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	md, err := a.chain.GetValidatorMetadata(r.Context(), validator, epoch)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeResponse(w, md)
}

func (a *restAPI) transfersFunc(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(chain.ContentType) != chain.ApplicationCbor {
		writeError(w, errors.New("expected CBOR encoded request"), http.StatusUnsupportedMediaType)
		return
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	tx, err := chain.DecodeSignedBatchTransfer(b)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	rec, err := a.chain.SubmitTransfer(r.Context(), tx)
	if err != nil {
		writeError(w, err, http.StatusServiceUnavailable)
		return
	}
	status := http.StatusAccepted
	if !rec.Accepted {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set(chain.ContentType, chain.ApplicationJson)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(chain.NewTransferResponse(rec))
}

func parseEpoch(r *http.Request) (types.Epoch, error) {
	s := r.URL.Query().Get(chain.QueryParamEpoch)
	if s == "" {
		return 0, errors.New("missing epoch parameter")
	}
	e, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return types.Epoch(e), nil
}

func writeResponse(w http.ResponseWriter, data any) {
	w.Header().Set(chain.ContentType, chain.ApplicationJson)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set(chain.ContentType, chain.ApplicationJson)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&chain.ErrorResponse{Message: err.Error()})
}
