package samples

import (
	"context"
	"fmt"

	"github.com/Sternrassler/noark5-client/pkg/noark"
	"github.com/google/uuid"
)

// MeetingResult holds the ids created by the meeting sample.
type MeetingResult struct {
	ArkivdelID          string
	MoetemappeID        string
	MoetedeltakerID     string
	Participants        int
	MoeteregistreringID string
	DokumentversjonID   string
}

// Meeting files a meeting notice with a participant and a document in a
// board meeting folder.
func (r *Runner) Meeting(ctx context.Context) (*MeetingResult, error) {
	client, err := r.clients.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, err
	}
	result := &MeetingResult{}

	arkiv := &noark.Arkiv{Tittel: "Arkiv"}
	arkivskaper := &noark.Arkivskaper{ArkivskaperIdent: "B7-23-W5", ArkivskaperNavn: "John Smith"}
	arkivdel := &noark.Arkivdel{Tittel: "2007/8"}
	_, err = client.Transaction().
		Save(arkiv).
		Save(arkivskaper).
		Save(arkivdel).
		Link(arkiv, noark.RefArkivskaper, arkivskaper).
		Link(arkivdel, noark.RefArkiv, arkiv).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	result.ArkivdelID = arkivdel.ID

	mappe := &noark.Moetemappe{Tittel: "Moetemappe Tittel", Moetenummer: "Moetenummer", Utvalg: "Utvalg"}
	deltaker := &noark.Moetedeltaker{Navn: "Moetedeltaker Navn"}
	_, err = client.Transaction().
		Save(mappe).
		Link(mappe, noark.RefArkivdel, arkivdel).
		Save(deltaker).
		Link(deltaker, noark.RefMappe, mappe).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create meeting folder: %w", err)
	}
	result.MoetemappeID, result.MoetedeltakerID = mappe.ID, deltaker.ID
	r.logger.Info().
		Str("id", mappe.ID).
		Str("tittel", mappe.Tittel).
		Str("deltaker", deltaker.Navn).
		Msg("Created Moetemappe")

	participants, err := noark.NewQuery[noark.Moetedeltaker](client, "refMappe.id=@mappeId", 10).
		AddParam("mappeId", mappe.ID).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	result.Participants = len(participants.Results)

	enhet, err := client.PutCodeListValue(ctx, noark.CodeListAdministrativEnhet, noark.CodeValue{
		Code: uuid.NewString(),
		Name: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	registrering := &noark.Moeteregistrering{
		Tittel:                 "Tittel",
		Saksbehandler:          "Saksbehandler",
		AdministrativEnhet:     enhet,
		Moeteregistreringstype: noark.Code(noark.MoeteregistreringstypeMoeteinnkalling),
	}
	_, err = client.Transaction().
		Save(registrering).
		Link(registrering, noark.RefMappe, mappe).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create meeting record: %w", err)
	}
	result.MoeteregistreringID = registrering.ID
	r.logger.Info().Str("id", registrering.ID).Msg("Created Moeteregistrering")

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
		Link(dokument, noark.RefRegistrering, registrering).
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

	return result, nil
}
