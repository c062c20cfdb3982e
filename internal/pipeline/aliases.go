package pipeline

// Header spellings seen in uploaded spreadsheets, rewritten to the column
// title the dashboard expects. Both sides are normalized before use.
var DefaultHeaderAliases = map[string]string{
	"COD DEL PROGRAMA":       "COD DEL PROGRAMA",
	"CODIGO DEL PROGRAMA":    "COD DEL PROGRAMA",
	"COD DEL PROGRAMA SNIES": "COD DEL PROGRAMA",
	"CODIGO SNIES":           "COD DEL PROGRAMA",
	"CÓDIGO SNIES":           "COD DEL PROGRAMA",
	"SNIES":                  "COD DEL PROGRAMA",

	"DIRECCION": "DIRECCIÓN",

	"FECHA DE RESOLUCION": "FECHA DE RESOLUCIÓN",
	"FECHA RESOLUCION":    "FECHA DE RESOLUCIÓN",
	"FECHA_RESOLUCION":    "FECHA DE RESOLUCIÓN",

	"CLASIFICACION PARA TRAMITE": "CLASIFICACIÓN PARA TRÁMITE",
	"CLASIFICACION PARA TRÁMITE": "CLASIFICACIÓN PARA TRÁMITE",
	"CLASIFICACIÓN PARA TRAMITE": "CLASIFICACIÓN PARA TRÁMITE",

	"FECHA DE VENCIMIENTO": "Fecha de vencimiento",

	"NCL CODIGO":  "CODIGO NCL",
	"NCL VERSION": "VERSION",

	"PRF CODIGO":       "CODIGO_PROGRAMA",
	"PRF VERSION":      "VERSION",
	"PRF DENOMINACION": "NOMBRE_PROGRAMA",

	"COD REGIONAL": "CODIGO_REGIONAL",
	"COD CENTRO":   "CODIGO_CENTRO",
	"COD PROGRAMA": "CODIGO_PROGRAMA",
}
