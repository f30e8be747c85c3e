// Package chem holds the small amount of chemistry the pipeline needs to reason
// about precursor masses: molecular formulas with monoisotopic masses, precursor
// ion types (ionization plus adduct and in-source loss) and element constraints.
//
// Only singly charged ions are modelled. Mass conversions between neutral
// molecules and measured m/z values go through IonType so that the electron
// mass is handled in one place.
package chem
