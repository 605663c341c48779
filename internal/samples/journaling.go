package samples

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/google/uuid"
)

// JournalingResult holds the ids created by the journaling sample.
type JournalingResult struct {
	ArkivID           string
	ArkivdelID        string
	SaksmappeID       string
	JournalpostID     string
	DokumentversjonID string
	DownloadPath      string
	DokumentCount     int
}

// Journaling builds an archive with a classified series, files a case
// file with a registry entry and a document, downloads the document and
// finally deletes the document version.
func (r *Runner) Journaling(ctx context.Context) (*JournalingResult, error) {
	client, err := r.clients.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, err
	}
	result := &JournalingResult{}

	// Archive with a creator. New objects carry temporary ids until committed.
	arkivskaper := &noark.Arkivskaper{ArkivskaperIdent: "B7-23-W5", ArkivskaperNavn: "John Smith"}
	arkiv := &noark.Arkiv{Tittel: "Arkiv"}
	_, err = client.Transaction().
		Save(arkiv).
		Save(arkivskaper).
		Link(arkiv, noark.RefArkivskaper, arkivskaper).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	result.ArkivID = arkiv.ID
	r.logger.Info().
		Str("id", arkiv.ID).
		Str("tittel", arkiv.Tittel).
		Time("opprettet_dato", deref(arkiv.OpprettetDato)).
		Msg("Created Arkiv")

	// Describe the archive, add a series with a primary classification system.
	arkiv.Beskrivelse = "Barnehage Arkiv"
	arkivdel := &noark.Arkivdel{Tittel: "2007/8"}
	system := &noark.Klassifikasjonssystem{Tittel: "Barnehage"}
	klasse := &noark.Klasse{KlasseIdent: "01", Tittel: "Tilbud"}
	_, err = client.Transaction().
		Save(arkiv).
		Save(arkivdel).
		Link(arkivdel, noark.RefArkiv, arkiv).
		Save(system).
		Link(arkivdel, noark.RefPrimaerKlassifikasjonssystem, system).
		Save(klasse).
		Link(klasse, noark.RefKlassifikasjonssystem, system).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create series: %w", err)
	}
	result.ArkivdelID = arkivdel.ID
	r.logger.Info().Str("id", arkiv.ID).Str("beskrivelse", arkiv.Beskrivelse).Msg("Updated Arkiv")
	r.logger.Info().Str("id", arkivdel.ID).Str("tittel", arkivdel.Tittel).Msg("Created Arkivdel")

	// Screen the series with a new screening code.
	skjerming, err := client.PutCodeListValue(ctx, noark.CodeListSkjerming, noark.CodeValue{
		Code:        uuid.NewString(),
		Name:        uuid.NewString(),
		Description: "Description",
		Authority:   "Authority",
	})
	if err != nil {
		return nil, err
	}
	arkivdel.Skjerming = skjerming
	if _, err := client.Transaction().Save(arkivdel).Commit(ctx); err != nil {
		return nil, fmt.Errorf("screen series: %w", err)
	}

	// Screened fields come back masked unless the query opts out of public use.
	found, err := noark.NewQuery[noark.Arkivdel](client, "id=@arkivdelId", 10).
		AddParam("arkivdelId", arkivdel.ID).
		SetPublicUse(false).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info().Int("count", len(found.Results)).Str("id", arkivdel.ID).Msg("Found Arkivdel by id")
	if len(found.Results) > 0 {
		a := found.Results[0]
		r.logger.Info().
			Str("tittel", a.Tittel).
			Str("ref_arkiv", a.RefArkiv).
			Str("ref_primaer_klassifikasjonssystem", a.RefPrimaerKlassifikasjonssystem).
			Msg("Arkivdel references")
	}

	// Two secondary classification systems, one with a class.
	skole := &noark.Klassifikasjonssystem{Tittel: "Skole"}
	report := &noark.Klasse{KlasseIdent: "07", Tittel: "Report"}
	eop := &noark.Klassifikasjonssystem{Tittel: "EOP"}
	_, err = client.Transaction().
		Save(skole).
		Save(report).
		Link(skole, noark.RefKlasse, report).
		Link(report, noark.RefKlassifikasjonssystem, skole).
		Save(eop).
		Link(arkivdel, noark.RefSekundaerKlassifikasjonssystem, skole).
		Link(arkivdel, noark.RefSekundaerKlassifikasjonssystem, eop).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secondary classification: %w", err)
	}

	// Case file in the series, primary class from the primary system.
	enhet, err := client.PutCodeListValue(ctx, noark.CodeListAdministrativEnhet, noark.CodeValue{
		Code: uuid.NewString(),
		Name: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	saksmappe := &noark.Saksmappe{Tittel: "Tilbud (Smith, John)", AdministrativEnhet: enhet}
	_, err = client.Transaction().
		Save(saksmappe).
		Link(saksmappe, noark.RefArkivdel, arkivdel).
		Link(saksmappe, noark.RefPrimaerKlasse, klasse).
		Link(saksmappe, noark.RefSekundaerKlasse, report).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create case file: %w", err)
	}
	result.SaksmappeID = saksmappe.ID
	r.logger.Info().Str("id", saksmappe.ID).Msg("Created Saksmappe")

	// Move the case file to another class.
	klage := &noark.Klasse{KlasseIdent: "02", Tittel: "Klage"}
	_, err = client.Transaction().
		Save(klage).
		Link(klage, noark.RefKlassifikasjonssystem, system).
		Unlink(saksmappe, noark.RefPrimaerKlasse, klasse).
		Link(saksmappe, noark.RefPrimaerKlasse, klage).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("reclassify case file: %w", err)
	}
	r.logger.Info().
		Str("id", saksmappe.ID).
		Str("from", klasse.Tittel).
		Str("to", klage.Tittel).
		Msg("Moved Saksmappe to another Klasse")

	r.logCodeList(ctx, client, noark.CodeListJournalstatus)

	// Registry entry with an external id and a correspondence party.
	journalpost := &noark.Journalpost{
		Tittel:               "Tilbud (Smith, John, Godkjent)",
		Journalposttype:      noark.Code(noark.JournalposttypeUtgaaende),
		Journalaar:           2007,
		Journalsekvensnummer: 46,
	}
	eksternID := &noark.EksternId{EksterntSystem: "External System", EksternID: uuid.NewString()}
	part := &noark.Korrespondansepart{
		Korrespondanseparttype: noark.Code(noark.KorrespondanseparttypeInternMottaker),
		KorrespondansepartNavn: "John Smith",
	}
	_, err = client.Transaction().
		Save(journalpost).
		Link(journalpost, noark.RefMappe, saksmappe).
		Save(eksternID).
		Link(journalpost, noark.RefEksternID, eksternID).
		Save(part).
		Link(journalpost, noark.RefKorrespondansepart, part).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create registry entry: %w", err)
	}
	result.JournalpostID = journalpost.ID
	event := r.logger.Info().Str("id", journalpost.ID).Str("tittel", journalpost.Tittel)
	if journalpost.Journalstatus != nil {
		event = event.Str("journalstatus", journalpost.Journalstatus.Code)
	}
	event.Msg("Created Journalpost")

	byExternal, err := noark.NewQuery[noark.Journalpost](client, "refEksternId.eksternID=@eksternId", 10).
		AddParam("eksternId", eksternID.EksternID).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info().
		Int("count", len(byExternal.Results)).
		Str("ekstern_id", eksternID.EksternID).
		Msg("Found Journalpost by external id")

	// Document with a production-format version.
	fileID, err := r.uploadTestDoc(ctx, client)
	if err != nil {
		return nil, err
	}
	dokumenttype, err := client.PutCodeListValue(ctx, noark.CodeListDokumenttype, noark.CodeValue{
		Code: uuid.NewString(),
		Name: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	dokument := &noark.Dokument{
		Tittel:                    "Tilbud (Smith, John, Godkjent)",
		Dokumenttype:              dokumenttype,
		TilknyttetRegistreringSom: noark.Code(noark.TilknyttetHoveddokument),
	}
	versjon := &noark.Dokumentversjon{
		Variantformat: noark.Code(noark.VariantformatProduksjonsformat),
		Format:        ".pdf",
		Dokumentfil:   fileID,
	}
	_, err = client.Transaction().
		Save(dokument).
		Link(dokument, noark.RefRegistrering, journalpost).
		Save(versjon).
		Link(versjon, noark.RefDokument, dokument).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	result.DokumentversjonID = versjon.ID
	r.logger.Info().
		Str("id", versjon.ID).
		Int("versjonsnummer", versjon.Versjonsnummer).
		Int64("filstoerrelse", versjon.Filstoerrelse).
		Msg("Created Dokumentversjon")

	result.DownloadPath, err = download(ctx, client, r.config.DownloadDir, versjon.Dokumentfil)
	if err != nil {
		return nil, err
	}
	r.logger.Info().Str("path", result.DownloadPath).Msg("Downloaded file")

	// Documents in case files with this title, newest first.
	docs, err := noark.NewQuery[noark.Dokument](client, "refRegistrering.refMappe.tittel=@saksmappeTittel", 50).
		AddParam("saksmappeTittel", "Tilbud (Smith, John)").
		AddSortOrder("opprettetDato", noark.Desc).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	result.DokumentCount = len(docs.Results)
	r.logger.Info().
		Int("count", len(docs.Results)).
		Bool("has_more", docs.HasMore).
		Msg("Found Dokument objects in Saksmappe 'Tilbud (Smith, John)'")

	if _, err := client.Transaction().Delete(versjon).Commit(ctx); err != nil {
		return nil, fmt.Errorf("delete document version: %w", err)
	}
	r.logger.Info().Str("id", versjon.ID).Msg("Deleted Dokumentversjon")

	return result, nil
}

func (r *Runner) logCodeList(ctx context.Context, client *noark.Client, ref noark.CodeListRef) {
	list, err := client.CodeList(ctx, ref)
	if errors.Is(err, noark.ErrCodeListNotFound) {
		r.logger.Warn().Str("type", ref.Type).Str("field", ref.Field).Msg("Code list not available")
		return
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("type", ref.Type).Str("field", ref.Field).Msg("Failed to read code list")
		return
	}
	for _, v := range list.Values {
		r.logger.Info().
			Str("list", list.Type+"."+list.Field).
			Str("code", v.Code).
			Str("name", v.Name).
			Msg("Code value")
	}
}

func (r *Runner) uploadTestDoc(ctx context.Context, client *noark.Client) (string, error) {
	f, err := os.Open(r.config.TestDoc)
	if err != nil {
		return "", fmt.Errorf("open test document: %w", err)
	}
	defer f.Close()

	id, err := client.Upload(ctx, f, "godkjenning.pdf")
	if err != nil {
		return "", err
	}
	r.logger.Info().Str("file", r.config.TestDoc).Str("id", id).Msg("Uploaded file")
	return id, nil
}

func download(ctx context.Context, client *noark.Client, dir, fileID string) (string, error) {
	out, err := os.CreateTemp(dir, "noark-download-*")
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	defer out.Close()

	if _, err := client.Download(ctx, fileID, out); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}
