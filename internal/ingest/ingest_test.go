package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamopay/txrisk/pkg/models"
)

func TestLoadLegacyHeaders(t *testing.T) {
	csvData := strings.Join([]string{
		"CLIENTE,FECHA,HORA,MONTO (COP),COMISION (COP),ESTADO,TIPO DE TRA,TIPO_PERSONA",
		"ACME,2026-03-02,10:15:00,\"$ 15,000,000\",1500,Pagado,PSE,Natural",
		"ACME,2026-03-02,11:00:00,2000000,200,Rechazado,PSE,Jurídica",
		"BETA,2026-03-03,,500000,0,Validado,Nequi,CC",
	}, "\n")

	sets, err := Load(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, sets, 2)

	acme := sets[0]
	assert.Equal(t, "ACME", acme.ClientID)
	require.Len(t, acme.Records, 2)

	first := acme.Records[0]
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC), *first.Timestamp)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(15_000_000)))
	assert.Equal(t, models.StatusPaid, first.Status)
	assert.Equal(t, models.PersonNatural, first.PersonType)

	assert.Equal(t, models.StatusRejected, acme.Records[1].Status)
	assert.Equal(t, models.PersonJuridical, acme.Records[1].PersonType)

	beta := sets[1]
	assert.Equal(t, "BETA", beta.ClientID)
	require.NotNil(t, beta.Records[0].Timestamp)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), *beta.Records[0].Timestamp)
	assert.Equal(t, models.PersonNatural, beta.Records[0].PersonType)
	assert.Equal(t, "Nequi", beta.Records[0].Type)
}

func TestLoadLenientValues(t *testing.T) {
	csvData := strings.Join([]string{
		"CLIENTE,FECHA,MONTO (COP),ESTADO",
		"ACME,not-a-date,garbage,Retornado",
		"ACME,,1000000,nan",
	}, "\n")

	sets, err := Load(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, sets, 1)
	recs := sets[0].Records
	require.Len(t, recs, 2)

	assert.Nil(t, recs[0].Timestamp)
	assert.True(t, recs[0].Amount.IsZero())
	assert.Equal(t, models.StatusReturned, recs[0].Status)

	assert.Nil(t, recs[1].Timestamp)
	assert.Equal(t, models.StatusUnknown, recs[1].Status)
	assert.Equal(t, models.PersonUnknown, recs[1].PersonType)
}

func TestLoadCanonicalHeaders(t *testing.T) {
	csvData := strings.Join([]string{
		"client,date,amount,status,type,person_type",
		"ZETA,2026-01-05 08:00:00,750000,PAID,PSE,JURIDICAL",
	}, "\n")

	sets, err := Load(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "ZETA", sets[0].ClientID)
	assert.Equal(t, models.StatusPaid, sets[0].Records[0].Status)
	assert.Equal(t, models.PersonJuridical, sets[0].Records[0].PersonType)
}

func TestLoadRejectsMissingAmountColumn(t *testing.T) {
	_, err := Load(strings.NewReader("CLIENTE,FECHA\nACME,2026-01-01\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestLoadEmptyInput(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/report.csv")
	require.Error(t, err)
}
