// Package repository define los contratos de persistencia del dominio.
//
// Las structs son registros de datos planos: no saben persistirse a sí mismas.
// Cada interfaz *Repository/*Store aísla las operaciones atómicas que el
// backend debe garantizar (compare-and-swap sobre consumed_at, reemplazo de
// tokens vivos) de las cuestiones de esquema.
//
// Implementaciones: internal/store/pg (producción) e internal/store/memory
// (desarrollo y tests).
package repository
