// Package domain define contratos e tipos de domínio do front door: admissão por
// endereço de origem, despacho de conexões e troca periódica entre pares.
//
// Este pacote não depende de implementações concretas (mapas, goroutines, Redis).
// A intenção é permitir testes de unidade puros e desacoplar as regras de
// admissão dos detalhes de infraestrutura.
package domain
