package ebyggesak

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/noark5-client/pkg/logging"
	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/rs/zerolog"
)

// SubmitRequest describes one submission from eByggesak.
type SubmitRequest struct {
	SeriesTitle string

	CaseFileTitle      string
	CaseFileExternalID string

	// OrganizationalUnit is the administrativEnhet code given to a new case file.
	OrganizationalUnit string

	// PrimaryClassIdent and PrimaryClassTitle describe the primary class of a
	// new case file, created in the series' primary classification system
	// when missing.
	PrimaryClassIdent string
	PrimaryClassTitle string

	RegistryEntryTitle      string
	RegistryEntryExternalID string
	ScreeningCode           string
	CorrespondentName       string

	DocumentTitle string
	DocumentType  string

	// Document is uploaded as the main document. When nil, DocumentPath is
	// opened instead. DocumentName defaults to the base name of DocumentPath.
	Document     io.Reader
	DocumentName string
	DocumentPath string
}

// DefaultSubmitRequest returns a request with the sample values used by the
// eByggesak integration, uploading the file at documentPath.
func DefaultSubmitRequest(seriesTitle, documentPath string) SubmitRequest {
	return SubmitRequest{
		SeriesTitle:             seriesTitle,
		CaseFileTitle:           "Case file",
		CaseFileExternalID:      "caseFileExternalId",
		OrganizationalUnit:      "organizationalUnitCode",
		PrimaryClassIdent:       "01 Tilbud",
		PrimaryClassTitle:       "Tilbud om plass",
		RegistryEntryTitle:      "Registry entry",
		RegistryEntryExternalID: "registryEntryExternalId",
		ScreeningCode:           "N1",
		CorrespondentName:       "John Smith",
		DocumentTitle:           "Document description",
		DocumentType:            "Tilbud",
		DocumentPath:            documentPath,
	}
}

func (r SubmitRequest) validate() error {
	var missing []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	check("series title", r.SeriesTitle)
	check("case file external id", r.CaseFileExternalID)
	check("organizational unit", r.OrganizationalUnit)
	check("primary class ident", r.PrimaryClassIdent)
	check("screening code", r.ScreeningCode)
	check("document type", r.DocumentType)
	if r.Document == nil && r.DocumentPath == "" {
		missing = append(missing, "document")
	}
	if len(missing) > 0 {
		return fmt.Errorf("submit request: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// SubmitResult holds the objects a submission found or created.
type SubmitResult struct {
	Series          *noark.Arkivdel
	CaseFile        *noark.Saksmappe
	CaseFileCreated bool
	RegistryEntry   *noark.Journalpost
	Document        *noark.Dokument
	DocumentVersion *noark.Dokumentversjon
}

// Submitter files eByggesak submissions into the archive.
type Submitter struct {
	clients   ClientProvider
	ambiguity AmbiguityPolicy
	logger    zerolog.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(clients ClientProvider, ambiguity AmbiguityPolicy) *Submitter {
	return &Submitter{
		clients:   clients,
		ambiguity: ambiguity,
		logger:    logging.NewLogger(logging.ComponentEByggesak),
	}
}

// SubmitToDocumaster files req: it finds the series, reuses the case file
// carrying req.CaseFileExternalID or creates it, makes sure the screening
// code and document type exist, uploads the document and commits the
// registry entry with its external id, correspondence party, sign-off,
// document and document version in one transaction.
//
// An unknown series is logged and yields a nil result without error.
func (s *Submitter) SubmitToDocumaster(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	client, err := s.clients.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, err
	}

	series, err := findSeriesByTitle(ctx, client, req.SeriesTitle, s.ambiguity, s.logger)
	if err != nil {
		return nil, err
	}
	if series == nil {
		s.logger.Warn().Str("series", req.SeriesTitle).Msg("Did not find series, nothing submitted")
		return nil, nil
	}

	result := &SubmitResult{Series: series}

	result.CaseFile, result.CaseFileCreated, err = s.getOrCreateCaseFile(ctx, client, series, req)
	if err != nil {
		return nil, err
	}

	screening, err := getOrCreateCode(ctx, client, noark.CodeListSkjerming, req.ScreeningCode)
	if err != nil {
		return nil, err
	}
	documentType, err := getOrCreateCode(ctx, client, noark.CodeListDokumenttype, req.DocumentType)
	if err != nil {
		return nil, err
	}

	if err := s.createRegistryEntry(ctx, client, result, req, screening, documentType); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("series_id", series.ID).
		Str("case_file_id", result.CaseFile.ID).
		Bool("case_file_created", result.CaseFileCreated).
		Str("registry_entry_id", result.RegistryEntry.ID).
		Msg("Submitted to archive")

	return result, nil
}

func (s *Submitter) getOrCreateCaseFile(ctx context.Context, client *noark.Client, series *noark.Arkivdel, req SubmitRequest) (*noark.Saksmappe, bool, error) {
	query := noark.NewQuery[noark.Saksmappe](client, "refArkivdel.id=@seriesId && refEksternId.eksternID=@externalId", 1).
		AddParam("seriesId", series.ID).
		AddParam("externalId", req.CaseFileExternalID)
	caseFile, err := lookupOne(ctx, query, s.ambiguity, s.logger, fmt.Sprintf("case file with external id %q", req.CaseFileExternalID))
	if err != nil {
		return nil, false, err
	}
	if caseFile != nil {
		s.logger.Debug().Str("id", caseFile.ID).Msg("Reusing case file")
		return caseFile, false, nil
	}

	// A new case file needs a primary class and an organizational unit.
	unit, err := getOrCreateCode(ctx, client, noark.CodeListAdministrativEnhet, req.OrganizationalUnit)
	if err != nil {
		return nil, false, err
	}
	if series.RefPrimaerKlassifikasjonssystem == "" {
		return nil, false, fmt.Errorf("series %s has no primary classification system", series.ID)
	}
	class, err := s.getOrCreateClass(ctx, client, req.PrimaryClassIdent, req.PrimaryClassTitle, series.RefPrimaerKlassifikasjonssystem)
	if err != nil {
		return nil, false, err
	}

	caseFile = &noark.Saksmappe{Tittel: req.CaseFileTitle, AdministrativEnhet: unit}
	externalID := &noark.EksternId{EksterntSystem: ExternalSystem, EksternID: req.CaseFileExternalID}

	_, err = client.Transaction().
		Save(caseFile).
		LinkID(caseFile, noark.RefArkivdel, series.ID).
		LinkID(caseFile, noark.RefPrimaerKlasse, class.ID).
		Save(externalID).
		Link(externalID, noark.RefMappe, caseFile).
		Commit(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("create case file: %w", err)
	}

	s.logger.Info().Str("id", caseFile.ID).Msg("Created case file")
	return caseFile, true, nil
}

func (s *Submitter) getOrCreateClass(ctx context.Context, client *noark.Client, ident, title, classificationSystemID string) (*noark.Klasse, error) {
	resp, err := noark.NewQuery[noark.Klasse](client, "klasseIdent=@classId && refKlassifikasjonssystem.id=@classificationSystemId", 1).
		AddParam("classId", ident).
		AddParam("classificationSystemId", classificationSystemID).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("find class %q: %w", ident, err)
	}
	if len(resp.Results) > 0 {
		return resp.Results[0], nil
	}

	class := &noark.Klasse{KlasseIdent: ident, Tittel: title}
	_, err = client.Transaction().
		Save(class).
		LinkID(class, noark.RefKlassifikasjonssystem, classificationSystemID).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create class %q: %w", ident, err)
	}

	s.logger.Info().Str("id", class.ID).Str("ident", ident).Msg("Created class")
	return class, nil
}

func (s *Submitter) createRegistryEntry(ctx context.Context, client *noark.Client, result *SubmitResult, req SubmitRequest, screening, documentType *noark.CodeValue) error {
	fileID, name, err := upload(ctx, client, req)
	if err != nil {
		return err
	}

	entry := &noark.Journalpost{
		Tittel:          req.RegistryEntryTitle,
		Journalposttype: noark.Code(noark.JournalposttypeUtgaaende),
		Skjerming:       screening,
	}
	externalID := &noark.EksternId{EksterntSystem: ExternalSystem, EksternID: req.RegistryEntryExternalID}
	party := &noark.Korrespondansepart{
		Korrespondanseparttype: noark.Code(noark.KorrespondanseparttypeAvsender),
		KorrespondansepartNavn: req.CorrespondentName,
	}
	signOff := &noark.Avskrivning{Avskrivningsmaate: noark.Code(noark.AvskrivningsmaateTattTilEtterretning)}
	document := &noark.Dokument{
		Tittel:                    req.DocumentTitle,
		Dokumenttype:              documentType,
		TilknyttetRegistreringSom: noark.Code(noark.TilknyttetHoveddokument),
	}
	version := &noark.Dokumentversjon{
		Variantformat: noark.Code(noark.VariantformatArkivformat),
		Format:        filepath.Ext(name),
		Dokumentfil:   fileID,
	}

	tx := client.Transaction().
		Save(entry).
		LinkID(entry, noark.RefMappe, result.CaseFile.ID)
	if req.RegistryEntryExternalID != "" {
		tx.Save(externalID).Link(externalID, noark.RefRegistrering, entry)
	}
	if req.CorrespondentName != "" {
		tx.Save(party).Link(party, noark.RefRegistrering, entry)
	}
	tx.Save(signOff).
		Link(entry, noark.RefAvskrivning, signOff).
		Save(document).
		Link(document, noark.RefRegistrering, entry).
		Save(version).
		Link(version, noark.RefDokument, document)

	if _, err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("create registry entry: %w", err)
	}

	result.RegistryEntry = entry
	result.Document = document
	result.DocumentVersion = version
	return nil
}

func upload(ctx context.Context, client *noark.Client, req SubmitRequest) (id, name string, err error) {
	name = req.DocumentName
	if req.Document != nil {
		if name == "" {
			name = "document"
		}
		id, err = client.Upload(ctx, req.Document, name)
	} else {
		if name == "" {
			name = filepath.Base(req.DocumentPath)
		}
		var f *os.File
		if f, err = os.Open(req.DocumentPath); err != nil {
			return "", "", fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		id, err = client.Upload(ctx, f, name)
	}
	if err != nil {
		return "", "", fmt.Errorf("upload document: %w", err)
	}
	return id, name, nil
}

// getOrCreateCode returns the value with code from the code list ref,
// adding it with a generated name when missing.
func getOrCreateCode(ctx context.Context, client *noark.Client, ref noark.CodeListRef, code string) (*noark.CodeValue, error) {
	list, err := client.CodeList(ctx, ref)
	if err != nil && !errors.Is(err, noark.ErrCodeListNotFound) {
		return nil, err
	}
	for _, v := range list.Values {
		if v.Code == code {
			return noark.Code(v), nil
		}
	}
	return client.PutCodeListValue(ctx, ref, noark.CodeValue{Code: code, Name: "name for " + code})
}
