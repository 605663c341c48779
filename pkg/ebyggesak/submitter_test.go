package ebyggesak

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/noark5-client/internal/testutil"
	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubmitRequest(content string) SubmitRequest {
	req := DefaultSubmitRequest(testSeriesTitle, "")
	req.Document = strings.NewReader(content)
	req.DocumentName = "offer.pdf"
	return req
}

func TestSubmitToDocumaster_CreatesCaseFileAndEntry(t *testing.T) {
	f := newArchiveFixture(t)
	submitter := NewSubmitter(StaticClient(newTestClient(t, f.mock)), FirstMatch)

	result, err := submitter.SubmitToDocumaster(context.Background(), newSubmitRequest("%PDF-1.4"))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, f.seriesID, result.Series.ID)
	assert.True(t, result.CaseFileCreated)
	assert.False(t, noark.IsTempID(result.CaseFile.ID))
	assert.NotEqual(t, f.caseID, result.CaseFile.ID, "fixture case file has no external id")

	caseFile, ok := f.mock.Object(result.CaseFile.ID)
	require.True(t, ok)
	assert.Equal(t, []string{f.seriesID}, caseFile.Links[noark.RefArkivdel])
	require.Len(t, caseFile.Links[noark.RefPrimaerKlasse], 1)
	require.Len(t, caseFile.Links[noark.RefEksternID], 1)

	class, ok := f.mock.Object(caseFile.Links[noark.RefPrimaerKlasse][0])
	require.True(t, ok)
	assert.Equal(t, "01 Tilbud", class.Fields["klasseIdent"])

	entry, ok := f.mock.Object(result.RegistryEntry.ID)
	require.True(t, ok)
	assert.Equal(t, []string{result.CaseFile.ID}, entry.Links[noark.RefMappe])
	assert.Len(t, entry.Links[noark.RefEksternID], 1)
	assert.Len(t, entry.Links[noark.RefKorrespondansepart], 1)
	assert.Len(t, entry.Links[noark.RefAvskrivning], 1)
	assert.Equal(t, "U", result.RegistryEntry.Journalposttype.Code)
	assert.Equal(t, "N1", result.RegistryEntry.Skjerming.Code)

	assert.Equal(t, result.RegistryEntry.ID, result.Document.RefRegistrering)
	assert.Equal(t, "Tilbud", result.Document.Dokumenttype.Code)
	assert.Equal(t, "H", result.Document.TilknyttetRegistreringSom.Code)

	version := result.DocumentVersion
	assert.Equal(t, result.Document.ID, version.RefDokument)
	assert.Equal(t, ".pdf", version.Format)
	assert.Equal(t, int64(len("%PDF-1.4")), version.Filstoerrelse)
	data, ok := f.mock.File(version.Dokumentfil)
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.4", string(data))

	// Missing code values were created.
	for _, ref := range []noark.CodeListRef{noark.CodeListAdministrativEnhet, noark.CodeListSkjerming, noark.CodeListDokumenttype} {
		assert.Len(t, f.mock.CodeList(ref.Type, ref.Field), 1, "%s.%s", ref.Type, ref.Field)
	}
}

func TestSubmitToDocumaster_ReusesCaseFileAndCodes(t *testing.T) {
	f := newArchiveFixture(t)
	f.mock.SetCodeList("Journalpost", "skjerming", testutil.CodeValue{Code: "N1", Name: "Skjermet"})
	f.mock.SetCodeList("Dokument", "dokumenttype", testutil.CodeValue{Code: "Tilbud", Name: "Tilbud"})
	submitter := NewSubmitter(StaticClient(newTestClient(t, f.mock)), FirstMatch)
	ctx := context.Background()

	first, err := submitter.SubmitToDocumaster(ctx, newSubmitRequest("one"))
	require.NoError(t, err)
	second, err := submitter.SubmitToDocumaster(ctx, newSubmitRequest("two"))
	require.NoError(t, err)

	assert.True(t, first.CaseFileCreated)
	assert.False(t, second.CaseFileCreated)
	assert.Equal(t, first.CaseFile.ID, second.CaseFile.ID)
	assert.NotEqual(t, first.RegistryEntry.ID, second.RegistryEntry.ID)

	assert.Len(t, f.mock.ObjectsOfType("Saksmappe"), 2, "fixture case file plus one created")
	assert.Len(t, f.mock.ObjectsOfType("Klasse"), 1)
	assert.Len(t, f.mock.ObjectsOfType("Journalpost"), 2)

	assert.Equal(t, "Skjermet", second.RegistryEntry.Skjerming.Name, "existing code value is reused")
	assert.Equal(t, 1, f.mock.CountRequests("/code-lists/Saksmappe/administrativEnhet"))
	assert.Zero(t, f.mock.CountRequests("/code-lists/Journalpost/skjerming"))
}

func TestSubmitToDocumaster_ReusesExistingClass(t *testing.T) {
	f := newArchiveFixture(t)
	series, _ := f.mock.Object(f.seriesID)
	systemID := series.Links[noark.RefPrimaerKlassifikasjonssystem][0]
	classID := f.mock.AddObject("Klasse", map[string]any{
		"klasseIdent":              "01 Tilbud",
		"refKlassifikasjonssystem": systemID,
	})

	submitter := NewSubmitter(StaticClient(newTestClient(t, f.mock)), FirstMatch)
	result, err := submitter.SubmitToDocumaster(context.Background(), newSubmitRequest("x"))
	require.NoError(t, err)

	caseFile, _ := f.mock.Object(result.CaseFile.ID)
	assert.Equal(t, []string{classID}, caseFile.Links[noark.RefPrimaerKlasse])
	assert.Len(t, f.mock.ObjectsOfType("Klasse"), 1)
}

func TestSubmitToDocumaster_SeriesNotFound(t *testing.T) {
	f := newArchiveFixture(t)
	submitter := NewSubmitter(StaticClient(newTestClient(t, f.mock)), FirstMatch)

	req := newSubmitRequest("x")
	req.SeriesTitle = "missing"
	result, err := submitter.SubmitToDocumaster(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, result)

	assert.Zero(t, f.mock.CountRequests("/transaction"))
	assert.Zero(t, f.mock.CountRequests("/upload"))
}

func TestSubmitToDocumaster_AmbiguousSeries(t *testing.T) {
	f := newArchiveFixture(t)
	f.mock.AddObject("Arkivdel", map[string]any{"tittel": testSeriesTitle})

	result, err := NewSubmitter(StaticClient(newTestClient(t, f.mock)), FirstMatch).
		SubmitToDocumaster(context.Background(), newSubmitRequest("x"))
	require.NoError(t, err)
	assert.Equal(t, f.seriesID, result.Series.ID)

	_, err = NewSubmitter(StaticClient(newTestClient(t, f.mock)), FailOnAmbiguous).
		SubmitToDocumaster(context.Background(), newSubmitRequest("x"))
	assert.ErrorIs(t, err, ErrAmbiguousMatch)
}

func TestSubmitToDocumaster_SeriesWithoutClassificationSystem(t *testing.T) {
	mock := testutil.NewMockArchive()
	defer mock.Close()
	mock.AddObject("Arkivdel", map[string]any{"tittel": testSeriesTitle})

	_, err := NewSubmitter(StaticClient(newTestClient(t, mock)), FirstMatch).
		SubmitToDocumaster(context.Background(), newSubmitRequest("x"))
	assert.ErrorContains(t, err, "no primary classification system")
	assert.Zero(t, mock.CountRequests("/transaction"))
}

func TestSubmitToDocumaster_DocumentPath(t *testing.T) {
	f := newArchiveFixture(t)
	path := filepath.Join(t.TempDir(), "plan.docx")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))

	result, err := NewSubmitter(StaticClient(newTestClient(t, f.mock)), FirstMatch).
		SubmitToDocumaster(context.Background(), DefaultSubmitRequest(testSeriesTitle, path))
	require.NoError(t, err)
	assert.Equal(t, ".docx", result.DocumentVersion.Format)

	_, err = NewSubmitter(StaticClient(newTestClient(t, f.mock)), FirstMatch).
		SubmitToDocumaster(context.Background(), DefaultSubmitRequest(testSeriesTitle, filepath.Join(t.TempDir(), "missing.pdf")))
	assert.ErrorContains(t, err, "open document")
}

func TestSubmitRequest_Validate(t *testing.T) {
	err := SubmitRequest{}.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "series title")
	assert.Contains(t, err.Error(), "document")

	assert.NoError(t, newSubmitRequest("x").validate())
}
