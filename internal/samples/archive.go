package samples

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/noark5-client/pkg/noark"
)

// ArchiveResult holds the ids created by the archive sample. Skipped is set
// when the service offers no folder types or document types to file with.
type ArchiveResult struct {
	ArkivID             string
	ForelderMappeID     string
	MappeID             string
	BasisregistreringID string
	ChildFolders        int
	DokumentversjonID   string
	Skipped             string
}

// Archive builds a folder hierarchy with a basic record and a document,
// using only code values the service already offers.
func (r *Runner) Archive(ctx context.Context) (*ArchiveResult, error) {
	client, err := r.clients.GetAuthenticatedClient(ctx)
	if err != nil {
		return nil, err
	}
	result := &ArchiveResult{}

	arkiv := &noark.Arkiv{Tittel: "Arkiv"}
	arkivskaper := &noark.Arkivskaper{ArkivskaperIdent: "B7-23-W5", ArkivskaperNavn: "John Smith"}
	arkivdel := &noark.Arkivdel{Tittel: "2007/8"}
	_, err = client.Transaction().
		Save(arkiv).
		Save(arkivskaper).
		Link(arkiv, noark.RefArkivskaper, arkivskaper).
		Save(arkivdel).
		Link(arkivdel, noark.RefArkiv, arkiv).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	result.ArkivID = arkiv.ID
	r.logger.Info().Str("arkiv", arkiv.ID).Str("arkivdel", arkivdel.ID).Msg("Created archive structure")

	mappetype, err := r.firstCode(ctx, client, noark.CodeListMappetype)
	if err != nil {
		return nil, err
	}
	if mappetype == nil {
		result.Skipped = "no folder types"
		r.logger.Warn().Msg("Can't create folders: no folder types in code list")
		return result, nil
	}

	forelder := &noark.Mappe{Tittel: "Parent Folder", Mappetype: mappetype}
	mappe := &noark.Mappe{Tittel: "Child Folder", Mappetype: mappetype}
	_, err = client.Transaction().
		Save(forelder).
		Link(forelder, noark.RefArkivdel, arkivdel).
		Save(mappe).
		Link(mappe, noark.RefForelderMappe, forelder).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create folders: %w", err)
	}
	result.ForelderMappeID, result.MappeID = forelder.ID, mappe.ID

	children, err := noark.NewQuery[noark.Mappe](client, "refForelderMappe.id=@forelderMappeId", 10).
		AddParam("forelderMappeId", forelder.ID).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	result.ChildFolders = len(children.Results)
	r.logger.Info().
		Str("forelder", forelder.ID).
		Int("count", len(children.Results)).
		Msg("Found child folders")

	registrering := &noark.Basisregistrering{Tittel: "Basisregistrering"}
	part := &noark.Korrespondansepart{
		Korrespondanseparttype: noark.Code(noark.KorrespondanseparttypeMottaker),
		KorrespondansepartNavn: "John Smith",
	}
	_, err = client.Transaction().
		Save(registrering).
		Link(registrering, noark.RefMappe, mappe).
		Save(part).
		Link(registrering, noark.RefKorrespondansepart, part).
		Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	result.BasisregistreringID = registrering.ID
	r.logger.Info().Str("id", registrering.ID).Msg("Created Basisregistrering")

	fileID, err := r.uploadTestDoc(ctx, client)
	if err != nil {
		return nil, err
	}

	dokumenttype, err := r.firstCode(ctx, client, noark.CodeListDokumenttype)
	if err != nil {
		return nil, err
	}
	if dokumenttype == nil {
		result.Skipped = "no document types"
		r.logger.Warn().Msg("Can't create document: no document types in code list")
		return result, nil
	}

	dokument := &noark.Dokument{
		Tittel:                    "Document",
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
	r.logger.Info().Str("id", versjon.ID).Msg("Created Dokumentversjon")

	return result, nil
}

// firstCode returns the first value of the code list ref, or nil when the
// list is missing or empty.
func (r *Runner) firstCode(ctx context.Context, client *noark.Client, ref noark.CodeListRef) (*noark.CodeValue, error) {
	list, err := client.CodeList(ctx, ref)
	if errors.Is(err, noark.ErrCodeListNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(list.Values) == 0 {
		return nil, nil
	}
	return noark.Code(list.Values[0]), nil
}
