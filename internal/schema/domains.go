package schema

import (
	"fmt"

	"oferta/internal"
)

const (
	HistoricFicha      = "FICHA"
	HistoricProgram    = "PROGRAMA_FORMACION"
	HistoricCenter     = "NOMBRE_CENTRO"
	HistoricStart      = "FECHA_INICIO"
	HistoricModality   = "MODALIDAD_FORMACION"
	HistoricRegionCode = "CODIGO_REGIONAL"
	HistoricRegionName = "NOMBRE_REGIONAL"
	HistoricStatus     = "ESTADO_FICHA"

	NormsCode     = "CODIGO NCL"
	NormsVersion  = "VERSION"
	NormsName     = "NOMBRE_NCL"
	NormsValidity = "Vigencia"

	CatalogCode = "CODIGO_PROGRAMA"

	RegistryExpiry = "Fecha de vencimiento"
)

func text(name string) Field  { return Field{Name: name, Kind: KindText} }
func date(name string) Field  { return Field{Name: name, Kind: KindDate} }
func count(name string) Field { return Field{Name: name, Kind: KindInteger} }

var Historic = MustNew(string(internal.DomainHistoric),
	text(HistoricRegionCode),
	text(HistoricRegionName),
	text("CODIGO_CENTRO"),
	text(HistoricCenter),
	text("CODIGO_PROGRAMA"),
	text(HistoricProgram),
	text("NIVEL_FORMACION"),
	text(HistoricModality),
	text("JORNADA"),
	text("ETAPA_FICHA"),
	text(HistoricFicha),
	date(HistoricStart),
	date("FECHA_FIN"),
	text(HistoricStatus),
	text("CODIGO_MUNICIPIO"),
	text("CODIGO_ESTRATEGIA"),
	count("CUPO_ASIGNADO"),
	text("HISTORICO"),
	text("CODIGO_FICHA_RELACIONADO"),
	count("MATRICULADOS"),
	count("ACTIVOS"),
	count("INSCRITOS"),
	count("EN_TRANSITO"),
	count("FORMACION"),
	count("INDUCCION"),
	count("CONDICIONADOS"),
	count("APLAZADOS"),
	count("RETIROS_VOLUNTARIOS"),
	count("CANCELADOS"),
	count("REPROBADOS"),
	count("NO_APTOS"),
	count("REINGRESADO"),
	count("POR_CERTIFICAR"),
	count("CERTIFICADOS"),
	count("TRASLADADOS"),
)

var Norms = MustNew(string(internal.DomainNorms),
	text("RED CONOCIMIENTO"),
	text(NormsName),
	text(NormsCode),
	text(NormsVersion),
	text("Norma corte a NOVIEMBRE"),
	text("Norma - Versión"),
	text("Mesa Sectorial"),
	text("Tipo de Norma"),
	text("Observación"),
	date("Fecha de revisión"),
	text("Tipo de competencia"),
	text(NormsValidity),
	date("Fecha de Elaboración"),
	text("CODIGO PROGRAMA"),
)

var Catalog = MustNew(string(internal.DomainCatalog),
	text(CatalogCode),
	text("VERSION"),
	text("NOMBRE_PROGRAMA"),
	text("NIVEL DE FORMACION"),
	text("MODALIDAD"),
	text("RED TECNOLOGICA"),
	text("LINEA TECNOLOGICA"),
	count("DURACION MAXIMA"),
	text("ESTADO"),
	date("FECHA ACTIVACION"),
)

var Registry = MustNew(string(internal.DomainRegistry),
	text("TIPO DE TRAMITE"),
	date("FECHA RADICADO"),
	text("NUMERO DE RESOLUCION"),
	date("FECHA DE RESOLUCIÓN"),
	text("COD DEL PROGRAMA"),
	date(RegistryExpiry),
	text("CODIGO PROGRAMA"),
	text("NOMBRE DEL PROGRAMA"),
	text("NIVEL DE FORMACION"),
	text("MODALIDAD"),
	text("CLASIFICACIÓN PARA TRÁMITE"),
	text("DIRECCIÓN"),
)

func ForDomain(d internal.Domain) (*Schema, error) {
	switch d {
	case internal.DomainHistoric:
		return Historic, nil
	case internal.DomainNorms:
		return Norms, nil
	case internal.DomainCatalog:
		return Catalog, nil
	case internal.DomainRegistry:
		return Registry, nil
	default:
		return nil, fmt.Errorf("no schema for domain %q", d)
	}
}
