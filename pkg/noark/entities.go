package noark

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity is implemented by every archive object type the client can query or save.
type Entity interface {
	// EntityType returns the Noark 5 object type name, e.g. "Journalpost".
	EntityType() string
	object() *Object
}

// EntityPtr constrains a type parameter to a pointer to an entity struct.
// It lets generic code take the struct type and still call Entity methods.
type EntityPtr[T any] interface {
	*T
	Entity
}

// Object holds the identity and audit fields shared by all archive objects.
// ID and Version travel outside the fields document on the wire.
type Object struct {
	ID      string `json:"-"`
	Version string `json:"-"`

	OpprettetDato *time.Time `json:"opprettetDato,omitempty"`
	OpprettetAv   string     `json:"opprettetAv,omitempty"`
}

func (o *Object) object() *Object { return o }

// IDOf returns the id of an entity, or "" for nil.
func IDOf(e Entity) string {
	if e == nil {
		return ""
	}
	return e.object().ID
}

// wireObject is the envelope the service uses for objects in query results,
// transaction actions and transaction responses.
type wireObject struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Version string          `json:"version,omitempty"`
	Fields  json.RawMessage `json:"fields,omitempty"`
}

// decodeInto copies a wire object into dst.
func decodeInto(w wireObject, dst Entity) error {
	if w.Type != "" && w.Type != dst.EntityType() {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedType, w.Type, dst.EntityType())
	}
	if len(w.Fields) > 0 {
		if err := json.Unmarshal(w.Fields, dst); err != nil {
			return fmt.Errorf("decode %s fields: %w", dst.EntityType(), err)
		}
	}
	o := dst.object()
	o.ID = w.ID
	o.Version = w.Version
	return nil
}

// decodeAs allocates a new T and decodes w into it.
func decodeAs[T any, P EntityPtr[T]](w wireObject) (P, error) {
	var v P = new(T)
	if err := decodeInto(w, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Reference field names used when linking objects.
const (
	RefArkiv                          = "refArkiv"
	RefArkivskaper                    = "refArkivskaper"
	RefArkivdel                       = "refArkivdel"
	RefPrimaerKlassifikasjonssystem   = "refPrimaerKlassifikasjonssystem"
	RefSekundaerKlassifikasjonssystem = "refSekundaerKlassifikasjonssystem"
	RefKlassifikasjonssystem          = "refKlassifikasjonssystem"
	RefKlasse                         = "refKlasse"
	RefPrimaerKlasse                  = "refPrimaerKlasse"
	RefSekundaerKlasse                = "refSekundaerKlasse"
	RefForelderMappe                  = "refForelderMappe"
	RefMappe                          = "refMappe"
	RefRegistrering                   = "refRegistrering"
	RefEksternID                      = "refEksternId"
	RefKorrespondansepart             = "refKorrespondansepart"
	RefAvskrivning                    = "refAvskrivning"
	RefDokument                       = "refDokument"
	RefMoetedeltaker                  = "refMoetedeltaker"
)

// Arkiv is a top-level archive.
type Arkiv struct {
	Object
	Tittel      string     `json:"tittel,omitempty"`
	Beskrivelse string     `json:"beskrivelse,omitempty"`
	Arkivstatus *CodeValue `json:"arkivstatus,omitempty"`
}

func (*Arkiv) EntityType() string { return "Arkiv" }

// Arkivskaper is the creator of an archive.
type Arkivskaper struct {
	Object
	ArkivskaperIdent string `json:"arkivskaperID,omitempty"`
	ArkivskaperNavn  string `json:"arkivskaperNavn,omitempty"`
}

func (*Arkivskaper) EntityType() string { return "Arkivskaper" }

// Arkivdel is a series within an archive.
type Arkivdel struct {
	Object
	Tittel         string     `json:"tittel,omitempty"`
	Beskrivelse    string     `json:"beskrivelse,omitempty"`
	Arkivdelstatus *CodeValue `json:"arkivdelstatus,omitempty"`
	Skjerming      *CodeValue `json:"skjerming,omitempty"`

	RefArkiv                        string `json:"refArkiv,omitempty"`
	RefPrimaerKlassifikasjonssystem string `json:"refPrimaerKlassifikasjonssystem,omitempty"`
}

func (*Arkivdel) EntityType() string { return "Arkivdel" }

// Klassifikasjonssystem is a classification system.
type Klassifikasjonssystem struct {
	Object
	Tittel string `json:"tittel,omitempty"`
}

func (*Klassifikasjonssystem) EntityType() string { return "Klassifikasjonssystem" }

// Klasse is a class within a classification system.
type Klasse struct {
	Object
	KlasseIdent string `json:"klasseIdent,omitempty"`
	Tittel      string `json:"tittel,omitempty"`

	RefKlassifikasjonssystem string `json:"refKlassifikasjonssystem,omitempty"`
}

func (*Klasse) EntityType() string { return "Klasse" }

// Mappe is a generic folder.
type Mappe struct {
	Object
	Tittel      string     `json:"tittel,omitempty"`
	Beskrivelse string     `json:"beskrivelse,omitempty"`
	Mappetype   *CodeValue `json:"mappetype,omitempty"`

	RefArkivdel      string `json:"refArkivdel,omitempty"`
	RefForelderMappe string `json:"refForelderMappe,omitempty"`
}

func (*Mappe) EntityType() string { return "Mappe" }

// Saksmappe is a case file.
type Saksmappe struct {
	Object
	Tittel             string     `json:"tittel,omitempty"`
	Saksdato           *time.Time `json:"saksdato,omitempty"`
	AdministrativEnhet *CodeValue `json:"administrativEnhet,omitempty"`

	RefArkivdel      string `json:"refArkivdel,omitempty"`
	RefPrimaerKlasse string `json:"refPrimaerKlasse,omitempty"`
}

func (*Saksmappe) EntityType() string { return "Saksmappe" }

// Basisregistrering is a basic record filed in a folder.
type Basisregistrering struct {
	Object
	Tittel string `json:"tittel,omitempty"`

	RefMappe string `json:"refMappe,omitempty"`
}

func (*Basisregistrering) EntityType() string { return "Basisregistrering" }

// Moetemappe is the folder of a board or committee meeting.
type Moetemappe struct {
	Object
	Tittel      string `json:"tittel,omitempty"`
	Moetenummer string `json:"moetenummer,omitempty"`
	Utvalg      string `json:"utvalg,omitempty"`

	RefArkivdel string `json:"refArkivdel,omitempty"`
}

func (*Moetemappe) EntityType() string { return "Moetemappe" }

// Moetedeltaker is a participant of a meeting.
type Moetedeltaker struct {
	Object
	Navn string `json:"navn,omitempty"`

	RefMappe string `json:"refMappe,omitempty"`
}

func (*Moetedeltaker) EntityType() string { return "Moetedeltaker" }

// Moeteregistrering is a record filed in a meeting folder.
type Moeteregistrering struct {
	Object
	Tittel                 string     `json:"tittel,omitempty"`
	Saksbehandler          string     `json:"saksbehandler,omitempty"`
	AdministrativEnhet     *CodeValue `json:"administrativEnhet,omitempty"`
	Moeteregistreringstype *CodeValue `json:"moeteregistreringstype,omitempty"`

	RefMappe string `json:"refMappe,omitempty"`
}

func (*Moeteregistrering) EntityType() string { return "Moeteregistrering" }

// Journalpost is a registry entry filed in a case file.
type Journalpost struct {
	Object
	Tittel               string     `json:"tittel,omitempty"`
	Journalposttype      *CodeValue `json:"journalposttype,omitempty"`
	Journalstatus        *CodeValue `json:"journalstatus,omitempty"`
	Skjerming            *CodeValue `json:"skjerming,omitempty"`
	Journalaar           int        `json:"journalaar,omitempty"`
	Journalsekvensnummer int        `json:"journalsekvensnummer,omitempty"`

	RefMappe string `json:"refMappe,omitempty"`
}

func (*Journalpost) EntityType() string { return "Journalpost" }

// EksternId ties a folder or record to an identifier in an external system.
type EksternId struct {
	Object
	EksterntSystem string `json:"eksterntSystem,omitempty"`
	EksternID      string `json:"eksternID,omitempty"`

	RefRegistrering string `json:"refRegistrering,omitempty"`
	RefMappe        string `json:"refMappe,omitempty"`
}

func (*EksternId) EntityType() string { return "EksternId" }

// Korrespondansepart is a correspondence party of a record.
type Korrespondansepart struct {
	Object
	Korrespondanseparttype *CodeValue `json:"korrespondanseparttype,omitempty"`
	KorrespondansepartNavn string     `json:"korrespondansepartNavn,omitempty"`

	RefRegistrering string `json:"refRegistrering,omitempty"`
}

func (*Korrespondansepart) EntityType() string { return "Korrespondansepart" }

// Avskrivning is the sign-off of a registry entry.
type Avskrivning struct {
	Object
	Avskrivningsmaate *CodeValue `json:"avskrivningsmaate,omitempty"`
}

func (*Avskrivning) EntityType() string { return "Avskrivning" }

// Dokument is a document description attached to a record.
type Dokument struct {
	Object
	Tittel                    string     `json:"tittel,omitempty"`
	Dokumenttype              *CodeValue `json:"dokumenttype,omitempty"`
	TilknyttetRegistreringSom *CodeValue `json:"tilknyttetRegistreringSom,omitempty"`

	RefRegistrering string `json:"refRegistrering,omitempty"`
}

func (*Dokument) EntityType() string { return "Dokument" }

// Dokumentversjon is a stored version of a document's content.
type Dokumentversjon struct {
	Object
	Versjonsnummer int        `json:"versjonsnummer,omitempty"`
	Variantformat  *CodeValue `json:"variantformat,omitempty"`
	Format         string     `json:"format,omitempty"`
	Dokumentfil    string     `json:"dokumentfil,omitempty"`
	Filstoerrelse  int64      `json:"filstoerrelse,omitempty"`

	RefDokument string `json:"refDokument,omitempty"`
}

func (*Dokumentversjon) EntityType() string { return "Dokumentversjon" }

// Fixed code values from the Noark 5 standard.
var (
	JournalposttypeInngaaende  = CodeValue{Code: "I"}
	JournalposttypeUtgaaende   = CodeValue{Code: "U"}
	JournalposttypeOrganintern = CodeValue{Code: "N"}

	KorrespondanseparttypeAvsender       = CodeValue{Code: "EA"}
	KorrespondanseparttypeMottaker       = CodeValue{Code: "EM"}
	KorrespondanseparttypeInternMottaker = CodeValue{Code: "IM"}

	AvskrivningsmaateTattTilEtterretning = CodeValue{Code: "TE"}

	MoeteregistreringstypeMoeteinnkalling = CodeValue{Code: "MI"}
	MoeteregistreringstypeSaksframlegg    = CodeValue{Code: "SF"}
	MoeteregistreringstypeMoeteprotokoll  = CodeValue{Code: "MP"}

	TilknyttetHoveddokument = CodeValue{Code: "H"}
	TilknyttetVedlegg       = CodeValue{Code: "V"}

	VariantformatArkivformat       = CodeValue{Code: "A"}
	VariantformatProduksjonsformat = CodeValue{Code: "P"}
)

// Code returns a pointer to a copy of v, for assigning to entity fields.
func Code(v CodeValue) *CodeValue {
	return &v
}
